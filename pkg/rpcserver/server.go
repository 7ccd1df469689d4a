// Copyright 2025 Certen Protocol
//
// Package rpcserver is the boundary adapter spec §1 names as external
// ("the gRPC surface to trusted clients"): an HTTP/JSON adapter in the
// teacher's pkg/server handler style (method check, JSON decode/encode,
// logged validation errors) rather than a generated protobuf/gRPC
// service — generating a .proto schema and gRPC stubs is out of scope
// per spec §1, and no proto toolchain runs in this environment. It
// exposes the two documented operations (spec §6): WitnessEvent and
// ValidatedEvents.
package rpcserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/streamerrors"
	"github.com/vstreams/core/pkg/streamtypes"
)

// Witnesser is the capability WitnessEvent delegates to.
type Witnesser interface {
	WitnessEvent(ctx context.Context, eventID streamtypes.EventId) error
}

// FinalityWatcher is the capability ValidatedEvents delegates to, in
// lieu of the streaming finality watch spec §6 describes for the gRPC
// surface. Since this adapter is not a streaming RPC transport, each
// call performs one bounded poll: return the next finalized block after
// fromBlock and the event IDs validated in it, or fromBlock and no IDs
// when no newer finalized block exists yet.
type FinalityWatcher interface {
	ValidatedEventsSince(ctx context.Context, fromBlock authorities.BlockHash) (nextBlock authorities.BlockHash, eventIDs []streamtypes.EventId, err error)
}

// Server is the HTTP/JSON RPC adapter.
type Server struct {
	witnesser Witnesser
	watcher   FinalityWatcher
	logger    *log.Logger
}

// New constructs a Server. If logger is nil, a default one is created
// matching the teacher's "[Component] " prefix convention.
func New(witnesser Witnesser, watcher FinalityWatcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[RPCServer] ", log.LstdFlags)
	}
	return &Server{witnesser: witnesser, watcher: watcher, logger: logger}
}

// Handler returns the http.Handler exposing the two RPC operations.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/witness/", s.handleWitnessEvent)
	mux.HandleFunc("/validated-events", s.handleValidatedEvents)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// handleWitnessEvent implements POST /witness/{event_id}.
func (s *Server) handleWitnessEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hexID := strings.TrimPrefix(r.URL.Path, "/witness/")
	if hexID == "" || hexID == r.URL.Path {
		writeJSONError(w, http.StatusBadRequest, "event_id required")
		return
	}
	hexID = strings.TrimPrefix(hexID, "0x")

	raw, err := hex.DecodeString(hexID)
	if err != nil || len(raw) != 32 {
		// 32-byte event_id check at the gRPC boundary: non-32-byte
		// inputs are rejected here and never reach the Witnesser.
		writeJSONError(w, http.StatusBadRequest, "invalid-argument: event_id must be 32 bytes hex")
		return
	}
	var eventID streamtypes.EventId
	copy(eventID[:], raw)

	err = s.witnesser.WitnessEvent(r.Context(), eventID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ack"})
	case errors.Is(err, streamerrors.ErrNotAValidator):
		writeJSONError(w, http.StatusForbidden, "not-a-validator")
	case errors.Is(err, streamerrors.ErrSigningFailure):
		writeJSONError(w, http.StatusInternalServerError, "aborted: signing failure")
	default:
		s.logger.Printf("witness event failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "aborted")
	}
}

// handleValidatedEvents implements GET /validated-events?from_block=...
func (s *Server) handleValidatedEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	fromHex := strings.TrimPrefix(r.URL.Query().Get("from_block"), "0x")
	raw, err := hex.DecodeString(fromHex)
	if err != nil || len(raw) != 32 {
		writeJSONError(w, http.StatusBadRequest, "invalid-argument: from_block must be 32 bytes hex")
		return
	}
	var fromBlock authorities.BlockHash
	copy(fromBlock[:], raw)

	nextBlock, eventIDs, err := s.watcher.ValidatedEventsSince(r.Context(), fromBlock)
	if err != nil {
		s.logger.Printf("validated events query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "aborted")
		return
	}

	hexIDs := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		hexIDs[i] = id.Hex()
	}
	resp := struct {
		NextBlock string   `json:"next_block"`
		EventIDs  []string `json:"event_ids"`
	}{NextBlock: nextBlock.Hex(), EventIDs: hexIDs}

	_ = json.NewEncoder(w).Encode(resp)
}
