package config

import (
	"github.com/tolelom/ghast/types"
)

// BuildGenesisHeader constructs the Tree-Graph's root header from the
// config's Genesis section: zero parent hash, zero referee set, height 0,
// the chain ID as the deferred state root and the empty-list hash as the
// deferred receipts root (nothing has executed yet).
func BuildGenesisHeader(cfg *Config) *types.Header {
	h := &types.Header{
		ParentHash:           types.ZeroHash,
		Height:               0,
		Timestamp:            cfg.Genesis.Timestamp,
		Difficulty:           1,
		GasLimit:             0,
		TxRoot:               types.ComputeTxRoot(nil),
		DeferredStateRoot:    types.Hash(cfg.Genesis.ChainID),
		DeferredReceiptsRoot: types.EmptyReceiptsRoot,
		Adaptive:             false,
		PowQuality:           1,
		Miner:                cfg.Genesis.Miner,
	}
	return h
}

// BuildGenesisBlock wraps the genesis header in an empty block.
func BuildGenesisBlock(cfg *Config) *types.Block {
	return &types.Block{
		Header:       *BuildGenesisHeader(cfg),
		Transactions: nil,
	}
}
