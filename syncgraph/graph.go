package syncgraph

import (
	"sync"
	"time"

	"github.com/tolelom/ghast/blockdata"
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/types"
)

// Params are the header-verification knobs (difficulty/gas-limit
// adjustment), analogous to the teacher's PoA consensus parameters but
// generalized to the adjustable-difficulty schedule spec §4.1 describes.
type Params struct {
	InitialDifficulty      uint64
	DifficultyPeriodBlocks uint64 // blocks per difficulty-adjustment period
	DifficultyBoundDivisor uint64 // max relative change per period
	GasLimitBoundDivisor   uint64 // max relative change per block
	BenchMode              bool
}

// DefaultParams returns development-network defaults.
func DefaultParams() Params {
	return Params{
		InitialDifficulty:      1000,
		DifficultyPeriodBlocks: 2000,
		DifficultyBoundDivisor: 2048,
		GasLimitBoundDivisor:   1024,
		BenchMode:              false,
	}
}

// Graph is the Synchronization Graph: SyncGraphInner guarded by a single
// reader-writer lock (spec §5), fed by header/body admission and draining
// readiness into a FIFO channel a single Consensus worker consumes.
type Graph struct {
	mu sync.RWMutex

	arena        []node
	indices      map[types.Hash]int
	genesisIndex int

	// pendingChildren/pendingReferrers index blocks whose parent/referee
	// hash has not arrived yet, keyed by the awaited hash (spec §4.1:
	// "stores pending edges indexed by unknown hash").
	pendingChildren  map[types.Hash][]int
	pendingReferrers map[types.Hash][]int

	notReady              map[int]bool
	oldEraBlocksFrontier  []int
	oldEraBlocksFrontier2 map[int]bool

	dataMan blockdata.Manager
	params  Params
	emitter *events.Emitter

	// ready is the single-consumer FIFO channel the Consensus worker
	// drains; SyncGraph never reads from it.
	ready chan types.Hash
}

// New creates a Graph seeded with genesisHeader at GRAPH_READY.
func New(genesisHeader *types.Header, dataMan blockdata.Manager, params Params, emitter *events.Emitter) *Graph {
	g := &Graph{
		arena:                 nil,
		indices:               make(map[types.Hash]int),
		pendingChildren:       make(map[types.Hash][]int),
		pendingReferrers:      make(map[types.Hash][]int),
		notReady:              make(map[int]bool),
		oldEraBlocksFrontier2: make(map[int]bool),
		dataMan:               dataMan,
		params:                params,
		emitter:               emitter,
		ready:                 make(chan types.Hash, 4096),
	}
	idx := g.insertNode(genesisHeader, StatusGraphReady)
	g.genesisIndex = idx
	g.oldEraBlocksFrontier = append(g.oldEraBlocksFrontier, idx)
	g.oldEraBlocksFrontier2[idx] = true
	dataMan.InsertBlockHeader(genesisHeader.Hash(), genesisHeader)
	return g
}

// Ready returns the channel the Consensus worker drains GRAPH_READY hashes
// from, in causal (topologically extended) order.
func (g *Graph) Ready() <-chan types.Hash {
	return g.ready
}

// Close drops the sender side of the ready channel so the Consensus
// worker observes receiver-closed and exits (spec §5's cancellation rule).
func (g *Graph) Close() {
	close(g.ready)
}

func (g *Graph) insertNode(header *types.Header, status Status) int {
	h := header.Hash()
	n := node{
		header:              header,
		hash:                h,
		status:              status,
		parent:              null,
		pendingRefereeCount: 0,
		timestamp:           nowUnix(),
	}
	idx := len(g.arena)
	g.arena = append(g.arena, n)
	g.indices[h] = idx
	g.linkParent(idx, header.ParentHash)
	for _, refHash := range header.RefereeHashes {
		g.linkReferee(idx, refHash)
	}
	g.linkPendingChildren(idx, h)
	g.linkPendingReferrers(idx, h)
	return idx
}

func (g *Graph) linkParent(idx int, parentHash types.Hash) {
	if parentHash.IsZero() {
		return
	}
	if p, ok := g.indices[parentHash]; ok {
		g.arena[idx].parent = p
		g.arena[p].children = append(g.arena[p].children, idx)
		return
	}
	g.pendingChildren[parentHash] = append(g.pendingChildren[parentHash], idx)
}

func (g *Graph) linkReferee(idx int, refHash types.Hash) {
	if r, ok := g.indices[refHash]; ok {
		g.arena[idx].referees = append(g.arena[idx].referees, r)
		g.arena[r].referrers = append(g.arena[r].referrers, idx)
		return
	}
	g.arena[idx].pendingRefereeCount++
	g.pendingReferrers[refHash] = append(g.pendingReferrers[refHash], idx)
}

// linkPendingChildren attaches any node waiting on hash as its parent, now
// that idx has arrived.
func (g *Graph) linkPendingChildren(idx int, hash types.Hash) []int {
	waiters := g.pendingChildren[hash]
	delete(g.pendingChildren, hash)
	for _, w := range waiters {
		g.arena[w].parent = idx
		g.arena[idx].children = append(g.arena[idx].children, w)
	}
	return waiters
}

// linkPendingReferrers attaches any node waiting on hash as a referee, now
// that idx has arrived, decrementing their pending-referee counters.
func (g *Graph) linkPendingReferrers(idx int, hash types.Hash) []int {
	waiters := g.pendingReferrers[hash]
	delete(g.pendingReferrers, hash)
	for _, w := range waiters {
		g.arena[w].referees = append(g.arena[w].referees, idx)
		g.arena[idx].referrers = append(g.arena[idx].referrers, w)
		g.arena[w].pendingRefereeCount--
	}
	return waiters
}

func nowUnix() int64 { return time.Now().Unix() }
