package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsSamePorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.P2PPort = cfg.RPCPort
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error when rpc_port == p2p_port")
	}
}

func TestValidateRejectsEmptyNodeID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeID = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for empty node_id")
	}
}

func TestValidateRejectsBadMinerHex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Genesis.Miner = "not-hex"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for non-hex genesis miner")
	}

	cfg.Genesis.Miner = "abcd" // valid hex, wrong length
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for miner hex of wrong length")
	}
}

func TestValidateRejectsZeroAlphaDen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Consensus.AdaptiveWeightAlphaDen = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for zero adaptive_weight_alpha_den")
	}
}

func TestValidateRejectsPartialTLS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLS = &TLSConfig{CACert: "ca.pem"}
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error when only some TLS paths are set")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.NodeID = "node-under-test"
	cfg.Genesis.Miner = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.NodeID != cfg.NodeID {
		t.Errorf("NodeID = %q, want %q", loaded.NodeID, cfg.NodeID)
	}
	if loaded.Genesis.Miner != cfg.Genesis.Miner {
		t.Errorf("Genesis.Miner = %q, want %q", loaded.Genesis.Miner, cfg.Genesis.Miner)
	}
}
