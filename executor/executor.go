// Package executor defines the Executor external collaborator (spec §4.6):
// it applies a settled epoch to state and returns the resulting state and
// receipts roots. ConsensusInner only ever depends on the Executor
// interface; transaction semantics (what a payload does to state) are
// entirely the Executor's concern.
package executor

import (
	"context"

	"github.com/tolelom/ghast/types"
)

// Hash is a local alias, matching blockdata's convention.
type Hash = types.Hash

// RewardInfo carries, for each block in a settled epoch, the anticone
// penalty inputs spec §4.6/§4.2 step 12 pass to the Executor.
type RewardInfo struct {
	BlockHash           Hash
	AnticoneOverlimited bool
	AnticoneDifficulty  uint64
}

// EpochExecutionTask is what Consensus enqueues once a pivot height settles
// (spec §4.2 step 12): the pivot hash, its ordered epoch (topological,
// pivot last), optional reward info, and whether this is the locally
// canonical pivot chain or a speculative one.
type EpochExecutionTask struct {
	PivotHash         Hash
	OrderedEpochHashes []Hash
	RewardInfo        []RewardInfo
	OnLocalPivot      bool
	Debug             bool
}

// StateRootWithAux is the state root plus whatever auxiliary commitment the
// Executor wants to expose (e.g. a snapshot handle); ConsensusInner treats
// Aux as opaque.
type StateRootWithAux struct {
	StateRoot Hash
	Aux       []byte
}

// Executor is the narrow capability ConsensusInner/Consensus consume,
// matching spec §6's Executor interface.
type Executor interface {
	EnqueueEpoch(task EpochExecutionTask)
	ComputeEpoch(ctx context.Context, task EpochExecutionTask) (StateRootWithAux, Hash, error)
	WaitForResult(ctx context.Context, pivotHash Hash) (StateRootWithAux, Hash, error)
	CallVirtual(tx *types.Transaction, epochID Hash) ([]byte, uint64, error)
	Stop()
}
