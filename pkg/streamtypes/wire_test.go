package streamtypes

import (
	"bytes"
	"testing"
)

func sampleWitnessedEvent() WitnessedEvent {
	return WitnessedEvent{
		EventId: EventId{0x11},
		PubKey: PublicKey{
			Tag:   CryptoTypeEd25519,
			Bytes: bytes.Repeat([]byte{0xAB}, 32),
		},
		Signature: bytes.Repeat([]byte{0xCD}, 64),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	we := sampleWitnessedEvent()
	encoded := EncodeWitnessedEvent(we)

	decoded, err := DecodeWitnessedEvent(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.EventId != we.EventId {
		t.Errorf("event id mismatch: got %x want %x", decoded.EventId, we.EventId)
	}
	if !decoded.PubKey.Equal(we.PubKey) {
		t.Errorf("pub key mismatch: got %s want %s", decoded.PubKey, we.PubKey)
	}
	if !bytes.Equal(decoded.Signature, we.Signature) {
		t.Errorf("signature mismatch: got %x want %x", decoded.Signature, we.Signature)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	we := sampleWitnessedEvent()
	encoded := EncodeWitnessedEvent(we)

	if _, err := DecodeWitnessedEvent(encoded[:len(encoded)-1]); err == nil {
		t.Fatal("expected error decoding truncated input, got nil")
	}
}

func TestDecodeRejectsOversizedLengthPrefix(t *testing.T) {
	we := sampleWitnessedEvent()
	encoded := EncodeWitnessedEvent(we)

	// Corrupt the signature length prefix (last 4+len(sig) bytes) to an
	// implausibly large value.
	corrupted := make([]byte, len(encoded))
	copy(corrupted, encoded)
	prefixStart := len(encoded) - len(we.Signature) - 4
	corrupted[prefixStart] = 0xFF
	corrupted[prefixStart+1] = 0xFF
	corrupted[prefixStart+2] = 0xFF
	corrupted[prefixStart+3] = 0x7F

	if _, err := DecodeWitnessedEvent(corrupted); err == nil {
		t.Fatal("expected error decoding oversized length prefix, got nil")
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	we := sampleWitnessedEvent()
	encoded := append(EncodeWitnessedEvent(we), 0x00)

	if _, err := DecodeWitnessedEvent(encoded); err == nil {
		t.Fatal("expected error decoding input with trailing bytes, got nil")
	}
}

func TestPublicKeyKeyRoundTrip(t *testing.T) {
	pk := PublicKey{Tag: CryptoTypeEd25519, Bytes: bytes.Repeat([]byte{0x42}, 32)}
	key := pk.Key()
	back := key.PublicKey()

	if !back.Equal(pk) {
		t.Errorf("round trip mismatch: got %s want %s", back, pk)
	}
}

func TestPublicKeyEqual(t *testing.T) {
	a := PublicKey{Tag: CryptoTypeEd25519, Bytes: []byte{1, 2, 3}}
	b := PublicKey{Tag: CryptoTypeEd25519, Bytes: []byte{1, 2, 3}}
	c := PublicKey{Tag: CryptoTypeEd25519, Bytes: []byte{1, 2, 4}}

	if !a.Equal(b) {
		t.Error("expected a == b")
	}
	if a.Equal(c) {
		t.Error("expected a != c")
	}
}
