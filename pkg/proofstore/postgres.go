// Copyright 2025 Certen Protocol
//
// postgres.go is a persisted Proof Store backend over PostgreSQL,
// grounded in the teacher's pkg/database repository style: raw SQL over
// database/sql, context-threaded methods. Lookups of unknown events
// return empty results rather than a not-found error.
// Registering the driver (import _ "github.com/lib/pq") is the caller's
// responsibility, matching how the teacher's own tests do it.

package proofstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// PostgresStore is a Proof Store backend over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an already-opened *sql.DB. The caller owns the
// connection pool's lifecycle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the event_proofs table if it does not already exist.
// It is idempotent and safe to call on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS event_proofs (
	event_id   BYTEA NOT NULL,
	pub_key_tag SMALLINT NOT NULL,
	pub_key    BYTEA NOT NULL,
	signature  BYTEA NOT NULL,
	PRIMARY KEY (event_id, pub_key_tag, pub_key)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: migrate: %v", streamerrors.ErrDatabase, err)
	}
	return nil
}

// AddEventProof implements Store.AddEventProof.
func (s *PostgresStore) AddEventProof(ctx context.Context, we streamtypes.WitnessedEvent) error {
	const stmt = `
INSERT INTO event_proofs (event_id, pub_key_tag, pub_key, signature)
VALUES ($1, $2, $3, $4)
ON CONFLICT (event_id, pub_key_tag, pub_key) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, stmt, we.EventId[:], int16(we.PubKey.Tag), we.PubKey.Bytes, []byte(we.Signature)); err != nil {
		return fmt.Errorf("%w: insert: %v", streamerrors.ErrDatabase, err)
	}
	return nil
}

// GetEventProofs implements Store.GetEventProofs.
func (s *PostgresStore) GetEventProofs(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (map[streamtypes.PublicKeyKey]streamtypes.Signature, error) {
	const q = `SELECT pub_key_tag, pub_key, signature FROM event_proofs WHERE event_id = $1`

	rows, err := s.db.QueryContext(ctx, q, eventID[:])
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", streamerrors.ErrDatabase, err)
	}
	defer rows.Close()

	out := make(map[streamtypes.PublicKeyKey]streamtypes.Signature)
	for rows.Next() {
		var tag int16
		var pubKey, sig []byte
		if err := rows.Scan(&tag, &pubKey, &sig); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", streamerrors.ErrDatabase, err)
		}
		pk := streamtypes.PublicKey{Tag: streamtypes.CryptoType(tag), Bytes: pubKey}
		key := pk.Key()
		if _, ok := validators[key]; !ok {
			continue
		}
		out[key] = sig
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", streamerrors.ErrDatabase, err)
	}
	return out, nil
}

// GetEventProofCount implements Store.GetEventProofCount.
func (s *PostgresStore) GetEventProofCount(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) (int, error) {
	proofs, err := s.GetEventProofs(ctx, eventID, validators)
	if err != nil {
		return 0, err
	}
	return len(proofs), nil
}

// PurgeEventStaleSignatures implements Store.PurgeEventStaleSignatures.
func (s *PostgresStore) PurgeEventStaleSignatures(ctx context.Context, eventID streamtypes.EventId, validators map[streamtypes.PublicKeyKey]struct{}) error {
	const q = `SELECT pub_key_tag, pub_key FROM event_proofs WHERE event_id = $1`

	rows, err := s.db.QueryContext(ctx, q, eventID[:])
	if err != nil {
		return fmt.Errorf("%w: query: %v", streamerrors.ErrDatabase, err)
	}

	type row struct {
		tag int16
		key []byte
	}
	var stale []row
	for rows.Next() {
		var tag int16
		var pubKey []byte
		if err := rows.Scan(&tag, &pubKey); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan: %v", streamerrors.ErrDatabase, err)
		}
		pk := streamtypes.PublicKey{Tag: streamtypes.CryptoType(tag), Bytes: pubKey}
		if _, ok := validators[pk.Key()]; !ok {
			stale = append(stale, row{tag: tag, key: pubKey})
		}
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return fmt.Errorf("%w: rows: %v", streamerrors.ErrDatabase, rowsErr)
	}

	if len(stale) == 0 {
		return nil
	}

	const del = `DELETE FROM event_proofs WHERE event_id = $1 AND pub_key_tag = $2 AND pub_key = $3`
	for _, r := range stale {
		if _, err := s.db.ExecContext(ctx, del, eventID[:], r.tag, r.key); err != nil {
			return fmt.Errorf("%w: delete: %v", streamerrors.ErrDatabase, err)
		}
	}
	return nil
}
