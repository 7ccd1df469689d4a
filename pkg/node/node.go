// Copyright 2025 Certen Protocol
//
// Package node wires the Core's five components together in the
// dependency order spec §2 requires: Proof Store, then Authority View,
// then the Witnesser, Gossip Handler, and Block-Import Guard in
// parallel over that View. Grounded on the teacher's root main.go node-
// assembly style (construct each service in order, fail fast on the
// first construction error, hand back one struct the entrypoint drives).
package node

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"

	dbm "github.com/cometbft/cometbft-db"
	_ "github.com/lib/pq"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vstreams/core/pkg/authorities"
	"github.com/vstreams/core/pkg/chain"
	"github.com/vstreams/core/pkg/config"
	"github.com/vstreams/core/pkg/gossip"
	"github.com/vstreams/core/pkg/importguard"
	"github.com/vstreams/core/pkg/keystore"
	"github.com/vstreams/core/pkg/metrics"
	"github.com/vstreams/core/pkg/proofstore"
	"github.com/vstreams/core/pkg/rpcserver"
	"github.com/vstreams/core/pkg/streamtypes"
	"github.com/vstreams/core/pkg/witness"
)

// Deps are the external collaborators node.New cannot construct itself
// because they belong to the out-of-scope blockchain runtime (spec §1):
// the runtime API, the transaction pool, the sync oracle and block
// importer the Block-Import Guard wraps, the block-finality walker the
// RPC adapter's ValidatedEvents poll needs, and an already-initialized
// libp2p pubsub router.
type Deps struct {
	Runtime  chain.Runtime
	Pool     chain.TxPool
	Sync     importguard.SyncOracle
	Importer importguard.Importer
	Walker   chain.BlockWalker
	PubSub   *pubsub.PubSub
	Logger   *log.Logger
}

// Node holds every wired component of a running vstreamsd process.
type Node struct {
	Config    *config.Config
	Keystore  keystore.Keystore
	Store     proofstore.Store
	View      *authorities.View
	Witnesser *witness.Witnesser
	Gossip    *gossip.Handler
	Transport *gossip.Transport
	Guard     *importguard.Guard // nil in on-chain-proofs mode
	Metrics   *metrics.Metrics
	RPC       *rpcserver.Server

	logger *log.Logger
	closeDB func() error
}

// New constructs a Node from cfg and deps, in dependency order. The
// caller must call Run to start the background loops and Close to
// release any opened storage handles.
func New(cfg *config.Config, deps Deps) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid config: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[Node] ", log.LstdFlags)
	}

	// 1. Proof Store.
	store, closeDB, err := openProofStore(cfg.ProofStore)
	if err != nil {
		return nil, fmt.Errorf("node: open proof store: %w", err)
	}

	// Keystore: load from disk if configured, otherwise generate an
	// ephemeral key for development use.
	ks, err := openKeystore(cfg.Keystore)
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("node: open keystore: %w", err)
	}

	// 2. Authority View.
	view, err := authorities.NewView(deps.Runtime, nil)
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("node: build authority view: %w", err)
	}

	m := metrics.New()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Printf("metrics already registered, continuing without re-registering: %v", err)
	}

	proofMode := cfg.ProofModeValue()

	// 3. Witnesser, Gossip Handler, Block-Import Guard, built in
	// parallel over the View (no ordering dependency among the three).
	gossipHandler := gossip.New(view, store, deps.Runtime, deps.Pool,
		gossip.WithProofMode(proofMode),
		gossip.WithMetrics(m),
	)

	transport, err := gossip.NewTransport(deps.PubSub)
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("node: build gossip transport: %w", err)
	}

	publisher := gossip.NewLoopbackPublisher(gossipHandler, transport)
	witnesser := witness.New(view, ks, publisher)

	var guard *importguard.Guard
	if proofMode == chain.ProofModeOffChain {
		// on-chain-proofs mode makes the guard redundant (spec §9): the
		// runtime re-verifies the embedded proof map at execution time.
		guard = importguard.New(view, store, deps.Runtime, deps.Sync, deps.Importer).WithMetrics(m)
	}

	watcher := &finalityWatcher{walker: deps.Walker, runtime: deps.Runtime}
	rpc := rpcserver.New(witnesser, watcher, logger)

	return &Node{
		Config:    cfg,
		Keystore:  ks,
		Store:     store,
		View:      view,
		Witnesser: witnesser,
		Gossip:    gossipHandler,
		Transport: transport,
		Guard:     guard,
		Metrics:   m,
		RPC:       rpc,
		logger:    logger,
		closeDB:   closeDB,
	}, nil
}

// Run starts the node's background loops: the gossip transport's
// receive loop (feeding Ingest for every inbox message) and the
// periodic prune sweep. It blocks until ctx is canceled.
func (n *Node) Run(ctx context.Context) {
	go n.Transport.Run(ctx)
	go n.Gossip.RunPeriodicPrune(ctx, n.Config.Gossip.PruneInterval.Duration())
	go n.drainInbox(ctx)
	<-ctx.Done()
}

func (n *Node) drainInbox(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case we := <-n.Transport.Inbox():
			if err := n.Gossip.Ingest(ctx, we); err != nil {
				n.logger.Printf("ingest from gossip: %v", err)
			}
		}
	}
}

// Close releases the Proof Store's backing handles and tears down the
// gossip transport subscription.
func (n *Node) Close() error {
	n.Transport.Close()
	return n.closeDB()
}

// openProofStore opens the backend cfg names, returning a close func
// that is a no-op for backends with no handle to release.
func openProofStore(cfg config.ProofStoreSettings) (proofstore.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return proofstore.NewMemoryStore(), func() error { return nil }, nil
	case "kvdb":
		db, err := dbm.NewGoLevelDB("proofstore", cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open kvdb at %s: %w", filepath.Join(cfg.DataDir, "proofstore.db"), err)
		}
		return proofstore.NewKVStore(db), db.Close, nil
	case "offchain":
		db, err := dbm.NewGoLevelDB("offchain-proofstore", cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open offchain store at %s: %w", filepath.Join(cfg.DataDir, "offchain-proofstore.db"), err)
		}
		return proofstore.NewOffchainStore(db), db.Close, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime.Duration())
		pg := proofstore.NewPostgresStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pg, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown proof store backend %q", cfg.Backend)
	}
}

// openKeystore loads the local signing key from cfg.KeyPath, generating
// and persisting a new one on first run (matching the teacher's
// loadOrGenerateEd25519Key convention). An empty KeyPath falls back to
// an ephemeral in-memory key, for tests and throwaway devnets.
func openKeystore(cfg config.KeystoreSettings) (keystore.Keystore, error) {
	if cfg.KeyPath == "" {
		return keystore.GenerateEd25519Keystore(1), nil
	}
	return keystore.LoadOrGenerateEd25519Keystore(cfg.KeyPath)
}

// finalityWatcher implements rpcserver.FinalityWatcher as a single
// bounded poll: the next finalized block after fromBlock, and the
// witnessing event IDs its extrinsics reference. This stands in for
// the runtime's own finality-notification stream (spec §6), which this
// HTTP/JSON adapter does not keep a long-lived connection open for.
type finalityWatcher struct {
	walker  chain.BlockWalker
	runtime chain.Runtime
}

func (f *finalityWatcher) ValidatedEventsSince(ctx context.Context, fromBlock authorities.BlockHash) (authorities.BlockHash, []streamtypes.EventId, error) {
	hash, body, ok, err := f.walker.NextFinalized(ctx, fromBlock)
	if err != nil {
		return fromBlock, nil, fmt.Errorf("node: next finalized block: %w", err)
	}
	if !ok {
		return fromBlock, nil, nil
	}
	eventIDs, err := f.runtime.GetExtrinsicIDs(ctx, fromBlock, body)
	if err != nil {
		return fromBlock, nil, fmt.Errorf("node: get extrinsic ids: %w", err)
	}
	return hash, eventIDs, nil
}
