// Copyright 2025 Certen Protocol
//
// Package config loads the configuration for the Validated Streams Core
// daemon (cmd/vstreamsd): the YAML document plus environment-variable
// overrides, in the teacher's pkg/config anchor-config style
// (gopkg.in/yaml.v3, ${VAR_NAME} substitution, a custom Duration type,
// applyDefaults, and a Validate pass that accumulates all errors before
// returning).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vstreams/core/pkg/chain"
)

// Config holds all configuration for the vstreamsd process.
type Config struct {
	// Network is the spec §6 external-interface surface: the RPC bind
	// address and the gossip transport's listen port and bootnodes.
	Network NetworkSettings `yaml:"network"`

	// ProofStore selects and configures the Proof Store backend.
	ProofStore ProofStoreSettings `yaml:"proof_store"`

	// ProofMode is the spec §9 build-time mode selector:
	// "off-chain-proofs" or "on-chain-proofs".
	ProofMode string `yaml:"proof_mode"`

	// Keystore configures the local signing key material.
	Keystore KeystoreSettings `yaml:"keystore"`

	// Monitoring configures logging and metrics, the ambient stack the
	// distilled spec is silent on but the teacher always carries.
	Monitoring MonitoringSettings `yaml:"monitoring"`

	// Gossip configures the periodic prune sweep added per SPEC_FULL §9.
	Gossip GossipSettings `yaml:"gossip"`
}

// NetworkSettings contains the RPC and gossip transport endpoints.
type NetworkSettings struct {
	// GRPCAddr is the spec §6 "grpc_addr" key: the bind address for the
	// pkg/rpcserver HTTP/JSON adapter standing in for the out-of-scope
	// gRPC surface.
	GRPCAddr string `yaml:"grpc_addr"`

	// GossipPort is the spec §6 "gossip_port" key: the libp2p listen
	// port for the gossip transport.
	GossipPort int `yaml:"gossip_port"`

	// GossipBootnodes is the spec §6 "gossip_bootnodes" key: multiaddrs
	// of peers to dial at startup.
	GossipBootnodes []string `yaml:"gossip_bootnodes"`
}

// ProofStoreSettings selects and configures a Proof Store backend.
type ProofStoreSettings struct {
	// Backend is one of "memory", "kvdb", "offchain", "postgres".
	Backend string `yaml:"backend"`

	// DataDir is the base directory for the kvdb/offchain cometbft-db
	// backends.
	DataDir string `yaml:"data_dir"`

	// Postgres configures the database/sql + lib/pq backend. Only
	// consulted when Backend == "postgres".
	Postgres PostgresSettings `yaml:"postgres"`
}

// PostgresSettings contains database/sql connection configuration,
// grounded on the teacher's DatabaseSettings shape.
type PostgresSettings struct {
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// KeystoreSettings configures the local Ed25519 key material.
type KeystoreSettings struct {
	// KeyPath is a directory holding a single hex-encoded 64-byte
	// Ed25519 private key in ed25519_key.hex, created on first use.
	// Empty means generate an ephemeral key for development use,
	// matching the teacher's Ed25519KeyPath optional-path convention.
	KeyPath string `yaml:"key_path"`
}

// MonitoringSettings contains logging and metrics configuration.
type MonitoringSettings struct {
	Logging LoggingSettings `yaml:"logging"`
	Metrics MetricsSettings `yaml:"metrics"`
}

// LoggingSettings contains logging configuration.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// MetricsSettings contains Prometheus metrics configuration.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GossipSettings configures the Gossip Handler's periodic prune sweep
// (SPEC_FULL §9, supplemented from original_source/).
type GossipSettings struct {
	PruneInterval Duration `yaml:"prune_interval"`
}

// Duration wraps time.Duration for YAML unmarshaling of human-readable
// strings like "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable
// values, falling back to an inline :-default or the empty string.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads a YAML configuration document from path, expanding
// ${VAR_NAME} references against the process environment, then applies
// defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in safe defaults for unset fields, in the
// teacher's applyDefaults style.
func (c *Config) applyDefaults() {
	if c.Network.GRPCAddr == "" {
		c.Network.GRPCAddr = "0.0.0.0:9944"
	}
	if c.Network.GossipPort == 0 {
		c.Network.GossipPort = 30333
	}
	if c.ProofStore.Backend == "" {
		c.ProofStore.Backend = "memory"
	}
	if c.ProofStore.DataDir == "" {
		c.ProofStore.DataDir = "./data/proofstore"
	}
	if c.ProofStore.Postgres.MaxOpenConns == 0 {
		c.ProofStore.Postgres.MaxOpenConns = 25
	}
	if c.ProofStore.Postgres.MaxIdleConns == 0 {
		c.ProofStore.Postgres.MaxIdleConns = 5
	}
	if c.ProofStore.Postgres.ConnMaxLifetime == 0 {
		c.ProofStore.Postgres.ConnMaxLifetime = Duration(time.Hour)
	}
	if c.ProofMode == "" {
		c.ProofMode = "off-chain-proofs"
	}
	if c.Monitoring.Logging.Level == "" {
		c.Monitoring.Logging.Level = "info"
	}
	if c.Monitoring.Metrics.Path == "" {
		c.Monitoring.Metrics.Path = "/metrics"
	}
	if c.Gossip.PruneInterval == 0 {
		c.Gossip.PruneInterval = Duration(time.Minute)
	}
}

// Validate checks that the configuration is internally consistent.
// Call it after Load() and before starting the node.
func (c *Config) Validate() error {
	var errs []string

	if _, ok := chain.ParseProofMode(c.ProofMode); !ok {
		errs = append(errs, fmt.Sprintf("proof_mode %q is not one of off-chain-proofs, on-chain-proofs", c.ProofMode))
	}

	switch c.ProofStore.Backend {
	case "memory", "kvdb", "offchain":
		// no additional requirements
	case "postgres":
		if c.ProofStore.Postgres.DSN == "" {
			errs = append(errs, "proof_store.postgres.dsn is required when proof_store.backend is postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("proof_store.backend %q is not one of memory, kvdb, offchain, postgres", c.ProofStore.Backend))
	}

	if c.Network.GossipPort <= 0 || c.Network.GossipPort > 65535 {
		errs = append(errs, fmt.Sprintf("network.gossip_port %d is out of range", c.Network.GossipPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ProofModeValue parses ProofMode into the pkg/chain enum. Call only
// after Validate has returned nil.
func (c *Config) ProofModeValue() chain.ProofMode {
	mode, _ := chain.ParseProofMode(c.ProofMode)
	return mode
}
