package keystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateCreatesThenReloads(t *testing.T) {
	dir := t.TempDir()

	ks1, err := LoadOrGenerateEd25519Keystore(dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	keys1, err := ks1.SupportedKeys(context.Background())
	if err != nil || len(keys1) != 1 {
		t.Fatalf("expected exactly one key, got %v (err %v)", keys1, err)
	}

	ks2, err := LoadOrGenerateEd25519Keystore(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	keys2, err := ks2.SupportedKeys(context.Background())
	if err != nil || len(keys2) != 1 {
		t.Fatalf("expected exactly one key on reload, got %v (err %v)", keys2, err)
	}

	if keys1[0].Hex() != keys2[0].Hex() {
		t.Fatalf("expected the same key to be reloaded, got %s vs %s", keys1[0].Hex(), keys2[0].Hex())
	}
}

func TestLoadOrGenerateRejectsCorruptKeyFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadOrGenerateEd25519Keystore(dir); err != nil {
		t.Fatalf("initial generate: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, keyFileName), []byte("not-hex!!"), 0o600); err != nil {
		t.Fatalf("corrupt key file: %v", err)
	}

	if _, err := LoadOrGenerateEd25519Keystore(dir); err == nil {
		t.Fatalf("expected an error loading a corrupt key file")
	}
}
