package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// TLSConfig holds paths to the PEM files needed for mTLS.
// When nil or all paths empty, the node falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// SeedPeer identifies a remote node to connect to on startup.
type SeedPeer struct {
	ID   string `json:"id"`   // remote node ID
	Addr string `json:"addr"` // host:port
}

// GenesisConfig describes the chain's single genesis block.
type GenesisConfig struct {
	ChainID   string `json:"chain_id"`
	Timestamp int64  `json:"timestamp"`
	Miner     string `json:"miner"` // hex-encoded ed25519 pubkey credited with genesis
}

// ConsensusConfig holds the GHAST tuning knobs spec.md §3/§4 leaves as node
// parameters rather than protocol constants.
type ConsensusConfig struct {
	// AdaptiveWeightAlphaNum/Den is the adaptive-weight ratio α (default 2/3),
	// spec §4.3.
	AdaptiveWeightAlphaNum int64 `json:"adaptive_weight_alpha_num"`
	AdaptiveWeightAlphaDen int64 `json:"adaptive_weight_alpha_den"`
	// AdaptiveWeightBeta is the minimum inclusive-weight threshold β before
	// the adaptive check engages at all (default 1000), spec §4.3.
	AdaptiveWeightBeta int64 `json:"adaptive_weight_beta"`
	// HeavyBlockDifficultyRatio is heavy_block_difficulty_ratio scaled by
	// 1000 (default 240, i.e. 0.24), spec §3's "heavy block" definition.
	HeavyBlockDifficultyRatio uint64 `json:"heavy_block_difficulty_ratio"`
	// EnableOptimisticExecution is loaded and saved with the config; no
	// component reads it, so the Executor behaves the same either way.
	EnableOptimisticExecution bool `json:"enable_optimistic_execution"`
	// BenchMode is loaded and saved with the config; no component reads it.
	// PoW quality and deferred state roots are not verified in any mode.
	BenchMode bool `json:"bench_mode"`
	// DebugDumpDirInvalidStateRoot is loaded and saved with the config; no
	// component reads it and no state dump is ever written.
	DebugDumpDirInvalidStateRoot string `json:"debug_dump_dir_invalid_state_root,omitempty"`
}

// DefaultConsensusConfig returns the constants spec.md §4 cites as defaults.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		AdaptiveWeightAlphaNum:    2,
		AdaptiveWeightAlphaDen:    3,
		AdaptiveWeightBeta:        1000,
		HeavyBlockDifficultyRatio: 240,
		EnableOptimisticExecution: true,
		BenchMode:                 false,
	}
}

// Config holds all node configuration.
type Config struct {
	NodeID      string `json:"node_id"`
	DataDir     string `json:"data_dir"`
	RPCPort     int    `json:"rpc_port"`
	P2PPort     int    `json:"p2p_port"`
	MaxBlockTxs int    `json:"max_block_txs"` // default 500; no component reads or enforces it

	Consensus ConsensusConfig `json:"consensus"`
	Genesis   GenesisConfig   `json:"genesis"`

	SeedPeers    []SeedPeer `json:"seed_peers,omitempty"`     // initial peers to connect to
	TLS          *TLSConfig `json:"tls,omitempty"`            // nil -> plain TCP
	RPCAuthToken string     `json:"rpc_auth_token,omitempty"` // empty -> no auth
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		DataDir:     "./data",
		RPCPort:     8545,
		P2PPort:     30303,
		MaxBlockTxs: 500,
		Consensus:   DefaultConsensusConfig(),
		Genesis: GenesisConfig{
			ChainID: "ghast-dev",
		},
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Genesis.ChainID == "" {
		return fmt.Errorf("genesis.chain_id must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.P2PPort <= 0 || c.P2PPort > 65535 {
		return fmt.Errorf("p2p_port must be 1-65535, got %d", c.P2PPort)
	}
	if c.RPCPort == c.P2PPort {
		return fmt.Errorf("rpc_port and p2p_port must not be the same (%d)", c.RPCPort)
	}
	if c.Genesis.Miner != "" {
		b, err := hex.DecodeString(c.Genesis.Miner)
		if err != nil || len(b) != 32 {
			return fmt.Errorf("genesis.miner: must be 64-char hex (32 bytes ed25519 pubkey), got %q", c.Genesis.Miner)
		}
	}
	if c.Consensus.AdaptiveWeightAlphaDen == 0 {
		return fmt.Errorf("consensus.adaptive_weight_alpha_den must not be zero")
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
