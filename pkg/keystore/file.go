// Copyright 2025 Certen Protocol
//
// file.go loads or generates a single Ed25519 key from a file holding
// the hex-encoded 64-byte private key, grounded on the teacher's main.go loadOrGenerateEd25519Key
// (E.5 remediation): a fixed path, a load-if-present/generate-and-save-
// if-absent branch, 0600 permissions, hex encoding.

package keystore

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cometed25519 "github.com/cometbft/cometbft/crypto/ed25519"
)

// keyFileName is the fixed file name within a keystore directory. The
// Core only ever signs with one local key per process (spec §4.3 step
// 4 signs with "the first supported key"), so one file is sufficient.
const keyFileName = "ed25519_key.hex"

// LoadOrGenerateEd25519Keystore loads the Ed25519 key at
// <dir>/ed25519_key.hex, generating and persisting a new one if the
// file does not exist.
func LoadOrGenerateEd25519Keystore(dir string) (*Ed25519Keystore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, keyFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, stdPriv, err := stded25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("keystore: generate key: %w", err)
		}
		priv := cometed25519.PrivKey(stdPriv)
		if err := os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
			return nil, fmt.Errorf("keystore: save key to %s: %w", path, err)
		}
		return NewEd25519Keystore(priv), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read key from %s: %w", path, err)
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("keystore: decode key from %s: %w", path, err)
	}
	if len(raw) != stded25519.PrivateKeySize {
		return nil, fmt.Errorf("keystore: invalid key size in %s: expected %d, got %d", path, stded25519.PrivateKeySize, len(raw))
	}
	return NewEd25519Keystore(cometed25519.PrivKey(raw)), nil
}
