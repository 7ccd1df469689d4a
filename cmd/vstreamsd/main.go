// Copyright 2025 Certen Protocol
//
// vstreamsd is the Validated Streams Core daemon: it loads
// configuration, wires the five components in pkg/node's dependency
// order, joins the libp2p gossip topic, and serves the HTTP/JSON RPC
// adapter until a termination signal arrives. Grounded on the teacher's
// root main.go (flag parsing, config.Load, ordered service
// construction, signal.Notify-driven graceful shutdown with a bounded
// shutdown timeout).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vstreams/core/pkg/config"
	"github.com/vstreams/core/pkg/devnet"
	"github.com/vstreams/core/pkg/keystore"
	"github.com/vstreams/core/pkg/node"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger := log.New(log.Writer(), "[vstreamsd] ", log.LstdFlags|log.Lmicroseconds)

	var (
		configPath = flag.String("config", "", "path to the vstreamsd YAML config file")
		devMode    = flag.Bool("dev", false, "run against an in-process devnet runtime instead of dialing a real chain client")
		devTick    = flag.Duration("dev-block-time", 2*time.Second, "devnet block production interval (only with -dev)")
	)
	flag.Parse()

	if *configPath == "" {
		logger.Fatal("missing required -config flag")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if !*devMode {
		logger.Fatal("non-dev operation requires an embedding chain client (pkg/chain.Runtime/TxPool/BlockWalker and " +
			"pkg/importguard.SyncOracle/Importer implementations wired by the host process); rerun with -dev for a " +
			"standalone devnet, or embed this package as a library and call node.New directly")
	}

	ks, err := openKeystore(cfg.Keystore)
	if err != nil {
		logger.Fatalf("open keystore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, ps, err := buildGossipTransport(ctx, cfg.Network, logger)
	if err != nil {
		logger.Fatalf("build gossip transport: %v", err)
	}
	defer host.Close()

	signingKeys, err := ks.SupportedKeys(ctx)
	if err != nil || len(signingKeys) == 0 {
		logger.Fatalf("keystore has no usable signing key: %v", err)
	}
	rt := devnet.New(signingKeys)

	guardDeps := node.Deps{
		Runtime:  rt,
		Pool:     rt,
		Sync:     rt,
		Importer: rt,
		Walker:   rt,
		PubSub:   ps,
		Logger:   logger,
	}

	n, err := node.New(cfg, guardDeps)
	if err != nil {
		logger.Fatalf("construct node: %v", err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Printf("close node: %v", err)
		}
	}()

	go n.Run(ctx)
	go rt.Run(ctx, *devTick, n.Guard, func(err error) {
		logger.Printf("devnet block production: %v", err)
	})

	mux := http.NewServeMux()
	mux.Handle("/", n.RPC.Handler())
	if cfg.Monitoring.Metrics.Enabled {
		mux.Handle(cfg.Monitoring.Metrics.Path, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	}

	httpServer := &http.Server{
		Addr:    cfg.Network.GRPCAddr,
		Handler: mux,
	}
	go func() {
		logger.Printf("RPC adapter listening on %s", cfg.Network.GRPCAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown: %v", err)
	}
	logger.Println("stopped")
}

// openKeystore matches pkg/node's own convention: a configured path
// loads or generates a persisted key, an empty one falls back to an
// ephemeral key for quick local runs.
func openKeystore(cfg config.KeystoreSettings) (keystore.Keystore, error) {
	if cfg.KeyPath == "" {
		return keystore.GenerateEd25519Keystore(1), nil
	}
	return keystore.LoadOrGenerateEd25519Keystore(cfg.KeyPath)
}

// buildGossipTransport starts a libp2p host on cfg.GossipPort with an
// ephemeral identity (spec §1 lists "the libp2p transport wiring" as an
// out-of-scope collaborator the Core only consumes via *pubsub.PubSub;
// persisting the host's own libp2p identity across restarts, as
// opposed to the validator's signing key in pkg/keystore, is outside
// that boundary too) and joins gossipsub, dialing every configured
// bootnode on a best-effort basis.
func buildGossipTransport(ctx context.Context, cfg config.NetworkSettings, logger *log.Logger) (host interface{ Close() error }, ps *pubsub.PubSub, err error) {
	priv, _, err := p2pcrypto.GenerateKeyPair(p2pcrypto.Ed25519, -1)
	if err != nil {
		return nil, nil, fmt.Errorf("generate libp2p identity: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.GossipPort)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start libp2p host: %w", err)
	}

	gossipSub, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		return nil, nil, fmt.Errorf("start gossipsub: %w", err)
	}

	for _, addr := range cfg.GossipBootnodes {
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			logger.Printf("bootnode %q: invalid multiaddr: %v", addr, err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			logger.Printf("bootnode %q: invalid peer address: %v", addr, err)
			continue
		}
		if err := h.Connect(ctx, *info); err != nil {
			logger.Printf("bootnode %q: connect failed: %v", addr, err)
			continue
		}
		logger.Printf("connected to bootnode %s", info.ID)
	}

	return h, gossipSub, nil
}
