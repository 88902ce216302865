// Package consensusgraph implements ConsensusInner: the GHAST decision
// engine over the Tree-Graph DAG (spec.md §3/§4.2-§4.5). It maintains an
// arena of ConsensusNodes, six weighted link-cut trees mirroring the parent
// relation, the pivot chain, epoch assignment, an anticone cache, and
// confirmation-risk estimates. Every block SyncGraph releases as
// GRAPH_READY is inserted here exactly once, in causal order.
package consensusgraph

import "github.com/tolelom/ghast/types"

// null is the arena-index NULL sentinel (spec §9).
const null = -1

// Fixed protocol constants (spec §6); unlike config.ConsensusConfig's
// tuning knobs, these are not configurable.
const (
	DeferredStateEpochCount        = 5
	RewardEpochCount               = 12
	AnticonePenaltyUpperEpochCount = 10
	AnticonePenaltyRatio           = 100
	EraEpochCount                  = 10000
	AnticoneBarrierCap             = 1000
	MaxNumMaintainedRisk           = 10
	MinMaintainedRisk              = 1e-6
)

// nodeData is the mutable bundle spec §3 attaches to a ConsensusNode: every
// other field is set once at insertion and never mutated again.
type nodeData struct {
	epochNumber int64 // -1 == NULL, unassigned
	partialInvalid bool

	// blockSetInOwnEpoch is the step-2 backward-BFS result computed once at
	// insertion (spec §4.2 step 2): every block in this block's epoch if it
	// were pivot. It feeds past_weight/past_era_weight (step 3) and
	// check_correct_parent (step 7/§4.4) immediately, and is reused verbatim
	// as the authoritative epoch partition (§3's "own view of epoch") if
	// this block later actually becomes a pivot block (step 10) — it is
	// never recomputed after insertion.
	blockSetInOwnEpoch []int
	orderedEpochBlocks []int // topological order of blockSetInOwnEpoch, ends with self

	minEpochInOtherViews int64
	maxEpochInOtherViews int64

	sequenceNumber uint64
}

// node is one ConsensusNode (spec §3), arena-indexed.
type node struct {
	hash       types.Hash
	height     uint64
	difficulty uint64
	isHeavy    bool
	powQuality uint64

	parent    int
	children  []int
	referees  []int
	referrers []int

	pastWeight    int64
	pastEraWeight int64

	stable   bool
	adaptive bool

	lastPivotInPast uint64

	data nodeData
}

// blockWeight is a partial-invalid block's weight of zero, else its
// difficulty (spec §7's PartialInvalid rule: "link-cut trees still updated
// with partial-invalid weight = 0").
func (n *node) blockWeight() int64 {
	if n.data.partialInvalid {
		return 0
	}
	return int64(n.difficulty)
}
