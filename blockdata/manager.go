// Package blockdata defines the BlockDataManager external collaborator
// (spec §6): header/body lookup, invalid-block memoization, block-status
// and receipts-root persistence, and terminal-hash bookkeeping. ConsensusInner
// and SyncGraph depend only on the Manager interface, never on a concrete
// storage engine, so tests can run against MemManager.
package blockdata

import (
	"errors"

	"github.com/tolelom/ghast/types"
)

// ErrNotFound is returned by lookups for an absent hash.
var ErrNotFound = errors.New("blockdata: not found")

// TransactionAddress locates a transaction's position within a block, for
// transaction_address_by_hash.
type TransactionAddress struct {
	BlockHash Hash
	Index     int
}

// Hash is a local alias kept to avoid every call site spelling out
// types.Hash; blockdata otherwise treats hashes as opaque keys.
type Hash = types.Hash

// Manager is the narrow capability set ConsensusInner and SyncGraph consume,
// matching spec §6's BlockDataManager surface.
type Manager interface {
	BlockByHash(h Hash) (*types.Block, bool)
	BlockHeaderByHash(h Hash) (*types.Header, bool)
	BlockFromDB(h Hash) (*types.Block, bool)

	InsertBlockHeader(h Hash, header *types.Header)
	InsertBlockToKV(h Hash, block *types.Block)
	InsertCompactBlock(h Hash, header *types.Header, txHashes []Hash)

	InsertBlockStatusToDB(h Hash, partialInvalid bool)
	BlockStatusFromDB(h Hash) (partialInvalid bool, ok bool)

	InsertReceiptsRoot(epochHash Hash, root Hash)
	GetReceiptsRoot(epochHash Hash) (Hash, bool)

	BlockResultsByHashWithEpoch(h, epochHash Hash) (*EpochExecutionResult, bool)
	TransactionAddressByHash(txHash Hash) (TransactionAddress, bool)

	EpochExecuted(h Hash) bool
	InvalidateBlock(h Hash)
	VerifiedInvalid(h Hash) bool

	RemoveBlockHeader(h Hash)
	RemoveBlockFromKV(h Hash)

	GetStateNoCommit(epochHash Hash) (StateSnapshot, bool)
	ContainsState(epochHash Hash) bool

	// Terminals persists/loads the tip set ConsensusInner no longer
	// references directly (COL_MISC's "terminals" key in spec §6).
	SaveTerminals(hashes []Hash)
	LoadTerminals() []Hash
}

// EpochExecutionResult is what the Executor hands back for a settled epoch,
// cached by BlockResultsByHashWithEpoch.
type EpochExecutionResult struct {
	StateRoot    Hash
	ReceiptsRoot Hash
}

// StateSnapshot is an opaque handle an Executor can resume execution from;
// blockdata never inspects its contents.
type StateSnapshot struct {
	EpochHash Hash
	Data      []byte
}
