package consensusgraph

import (
	"github.com/tolelom/ghast/config"
	"github.com/tolelom/ghast/linkcut"
	"github.com/tolelom/ghast/types"
)

// pivotMetadata is the per-height bookkeeping recorded alongside the pivot
// chain (spec §4.2 step 11); pivot.go writes it on every pivot update, and
// no code in this package reads it back.
type pivotMetadata struct {
	hash                  types.Hash
	lastPivotInPastBlocks map[int]bool
}

// Inner is ConsensusInner: the arena plus the six link-cut trees, guarded
// by a single reader-writer lock at the Consensus façade layer (spec §5).
// Inner itself assumes single-writer access; Consensus is responsible for
// the locking discipline.
type Inner struct {
	arena   []node
	indices map[types.Hash]int

	genesisIndex int
	eraGenesis   int // era-genesis of the current era; reclamation not implemented (spec §3 lifecycle note)

	terminals map[int]bool

	weightTree            *linkcut.Tree
	inclusiveWeightTree    *linkcut.Tree
	stableWeightTree       *linkcut.Tree
	stableTree             *linkcut.Tree
	adaptiveTree           *linkcut.Tree
	inclusiveAdaptiveTree  *linkcut.Tree

	pivotChain         []int
	pivotChainMetadata []pivotMetadata

	anticone *anticoneCache

	nextSequenceNumber uint64

	cfg config.ConsensusConfig

	risks []riskEntry

	// twOld/twCur/twDelta track total_weight_in_past_2d (spec §4.5's w_4
	// input): twCur accumulates every newly-applied block's own weight,
	// and UpdateTotalWeightInPast periodically rolls it into twOld,
	// leaving twDelta as the weight added since the last rollover.
	twOld   int64
	twCur   int64
	twDelta int64
}

// NewInner creates an Inner seeded with a genesis header at height 0.
func NewInner(genesis *types.Header, cfg config.ConsensusConfig) *Inner {
	in := &Inner{
		indices:               make(map[types.Hash]int),
		terminals:              make(map[int]bool),
		weightTree:             linkcut.NewTree(),
		inclusiveWeightTree:    linkcut.NewTree(),
		stableWeightTree:       linkcut.NewTree(),
		stableTree:             linkcut.NewTree(),
		adaptiveTree:           linkcut.NewTree(),
		inclusiveAdaptiveTree:  linkcut.NewTree(),
		anticone:               newAnticoneCache(),
		cfg:                    cfg,
	}

	g := node{
		hash:       genesis.Hash(),
		height:     genesis.Height,
		difficulty: genesis.Difficulty,
		isHeavy:    genesis.IsHeavy(cfg.HeavyBlockDifficultyRatio),
		powQuality: genesis.PowQuality,
		parent:     null,
		stable:     true,
		adaptive:   false,
		data: nodeData{
			epochNumber:    0,
			sequenceNumber: 0,
		},
	}
	in.arena = append(in.arena, g)
	in.indices[g.hash] = 0
	in.genesisIndex = 0
	in.eraGenesis = 0
	in.terminals[0] = true
	in.nextSequenceNumber = 1

	in.weightTree.MakeTree(0)
	in.inclusiveWeightTree.MakeTree(0)
	in.stableWeightTree.MakeTree(0)
	in.stableTree.MakeTree(0)
	in.adaptiveTree.MakeTree(0)
	in.inclusiveAdaptiveTree.MakeTree(0)

	in.pivotChain = []int{0}
	in.pivotChainMetadata = []pivotMetadata{{hash: g.hash, lastPivotInPastBlocks: map[int]bool{0: true}}}

	return in
}

// GenesisIndex returns the arena index of genesis.
func (in *Inner) GenesisIndex() int { return in.genesisIndex }

// IndexOf returns hash's arena index, if present.
func (in *Inner) IndexOf(hash types.Hash) (int, bool) {
	idx, ok := in.indices[hash]
	return idx, ok
}

// HashOf returns the hash at idx.
func (in *Inner) HashOf(idx int) types.Hash { return in.arena[idx].hash }

// PivotChain returns a copy of the current pivot-chain hashes, genesis
// first.
func (in *Inner) PivotChain() []types.Hash {
	out := make([]types.Hash, len(in.pivotChain))
	for i, idx := range in.pivotChain {
		out[i] = in.arena[idx].hash
	}
	return out
}

// PivotChainLen returns the current pivot chain length (= tip height + 1).
func (in *Inner) PivotChainLen() int { return len(in.pivotChain) }

// PastWeight returns past_weight(hash).
func (in *Inner) PastWeight(hash types.Hash) (int64, bool) {
	idx, ok := in.indices[hash]
	if !ok {
		return 0, false
	}
	return in.arena[idx].pastWeight, true
}

// EpochNumber returns the epoch number assigned to hash, if any.
func (in *Inner) EpochNumber(hash types.Hash) (int64, bool) {
	idx, ok := in.indices[hash]
	if !ok || in.arena[idx].data.epochNumber < 0 {
		return 0, false
	}
	return in.arena[idx].data.epochNumber, true
}

// IsPartialInvalid reports whether hash was flagged partial_invalid.
func (in *Inner) IsPartialInvalid(hash types.Hash) bool {
	idx, ok := in.indices[hash]
	return ok && in.arena[idx].data.partialInvalid
}

// Stable/Adaptive report the flags computed at insertion.
func (in *Inner) Stable(hash types.Hash) (bool, bool) {
	idx, ok := in.indices[hash]
	if !ok {
		return false, false
	}
	return in.arena[idx].stable, true
}

func (in *Inner) Adaptive(hash types.Hash) (bool, bool) {
	idx, ok := in.indices[hash]
	if !ok {
		return false, false
	}
	return in.arena[idx].adaptive, true
}

// OrderedEpochBlocks returns the topological order (ending with the pivot
// itself) of the epoch rooted at the pivot block identified by hash.
func (in *Inner) OrderedEpochBlocks(hash types.Hash) ([]types.Hash, bool) {
	idx, ok := in.indices[hash]
	if !ok {
		return nil, false
	}
	out := make([]types.Hash, len(in.arena[idx].data.orderedEpochBlocks))
	for i, b := range in.arena[idx].data.orderedEpochBlocks {
		out[i] = in.arena[b].hash
	}
	return out, true
}

// Terminals returns the current terminal (leaf) hashes.
func (in *Inner) Terminals() []types.Hash {
	out := make([]types.Hash, 0, len(in.terminals))
	for idx := range in.terminals {
		out = append(out, in.arena[idx].hash)
	}
	return out
}
