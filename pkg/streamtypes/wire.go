// Copyright 2025 Certen Protocol
//
// wire.go implements the gossip-transport encoding for WitnessedEvent.
// The layout matches the reference implementation's bincode framing:
// fixed-width scalars and length-prefixed byte arrays, little-endian
// throughout. See DESIGN.md for why this is hand-rolled against
// encoding/binary rather than imported from a serialization library.

package streamtypes

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// maxWireSignature bounds signature length accepted off the wire, to
// keep a malformed length prefix from driving an unbounded allocation.
const maxWireSignature = 4096

// maxWireKeyBytes mirrors maxKeyBytes as the wire-level bound.
const maxWireKeyBytes = maxKeyBytes

// EncodeWitnessedEvent serializes a WitnessedEvent for gossip transport:
//
//	event_id:      32 bytes, fixed
//	pub_key.tag:   uint16, little-endian
//	pub_key.bytes: uint32 length prefix, then bytes
//	signature:     uint32 length prefix, then bytes
func EncodeWitnessedEvent(we WitnessedEvent) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 32+2+4+len(we.PubKey.Bytes)+4+len(we.Signature)))
	buf.Write(we.EventId[:])
	_ = binary.Write(buf, binary.LittleEndian, uint16(we.PubKey.Tag))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(we.PubKey.Bytes)))
	buf.Write(we.PubKey.Bytes)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(we.Signature)))
	buf.Write(we.Signature)
	return buf.Bytes()
}

// DecodeWitnessedEvent parses the layout written by EncodeWitnessedEvent.
// Malformed input (short reads, implausible length prefixes) is reported
// as an error; the caller (the gossip transport's receive loop) logs and
// drops.
func DecodeWitnessedEvent(data []byte) (WitnessedEvent, error) {
	r := bytes.NewReader(data)

	var we WitnessedEvent
	if _, err := readFull(r, we.EventId[:]); err != nil {
		return WitnessedEvent{}, fmt.Errorf("read event_id: %w", err)
	}

	var tag uint16
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return WitnessedEvent{}, fmt.Errorf("read pub_key tag: %w", err)
	}
	we.PubKey.Tag = CryptoType(tag)

	keyLen, err := readLengthPrefix(r, maxWireKeyBytes)
	if err != nil {
		return WitnessedEvent{}, fmt.Errorf("read pub_key length: %w", err)
	}
	we.PubKey.Bytes = make([]byte, keyLen)
	if _, err := readFull(r, we.PubKey.Bytes); err != nil {
		return WitnessedEvent{}, fmt.Errorf("read pub_key bytes: %w", err)
	}

	sigLen, err := readLengthPrefix(r, maxWireSignature)
	if err != nil {
		return WitnessedEvent{}, fmt.Errorf("read signature length: %w", err)
	}
	we.Signature = make([]byte, sigLen)
	if _, err := readFull(r, we.Signature); err != nil {
		return WitnessedEvent{}, fmt.Errorf("read signature bytes: %w", err)
	}

	if r.Len() != 0 {
		return WitnessedEvent{}, fmt.Errorf("%d trailing bytes after witnessed event", r.Len())
	}

	return we, nil
}

func readLengthPrefix(r *bytes.Reader, max uint32) (uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n > max {
		return 0, fmt.Errorf("length %d exceeds maximum %d", n, max)
	}
	if int(n) > r.Len() {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	return n, nil
}

func readFull(r *bytes.Reader, dst []byte) (int, error) {
	n, err := r.Read(dst)
	if err != nil {
		return n, err
	}
	if n != len(dst) {
		return n, fmt.Errorf("short read: wanted %d, got %d", len(dst), n)
	}
	return n, nil
}
