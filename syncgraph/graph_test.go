package syncgraph

import (
	"testing"

	"github.com/tolelom/ghast/blockdata"
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/types"
)

func testGenesis() *types.Header {
	return &types.Header{
		Height:     0,
		Difficulty: 1000,
		TxRoot:     types.Hash("genesis-tx-root"),
	}
}

func newTestGraph() (*Graph, *types.Header) {
	gen := testGenesis()
	g := New(gen, blockdata.NewMemManager(), DefaultParams(), events.NewEmitter())
	return g, gen
}

func header(parent types.Hash, height, nonce uint64, referees ...types.Hash) *types.Header {
	return &types.Header{
		ParentHash:    parent,
		RefereeHashes: referees,
		Height:        height,
		Difficulty:    1000,
		Nonce:         nonce,
		TxRoot:        types.Hash("tx-root"),
	}
}

func TestHeaderOnlyUntilParentArrives(t *testing.T) {
	g, gen := newTestGraph()

	orphanParent := header(gen.Hash(), 1, 1)
	orphan := header(orphanParent.Hash(), 2, 2)

	accepted, _ := g.InsertBlockHeader(orphan, false)
	if !accepted {
		t.Fatalf("header with unknown parent should still be accepted as header-only")
	}
	status, ok := g.StatusOf(orphan.Hash())
	if !ok || status != StatusHeaderOnly {
		t.Errorf("status = %v (ok=%v), want StatusHeaderOnly", status, ok)
	}

	// Now the parent arrives, and its own parent (genesis) is already
	// known, so the chain should become ready up to orphan.
	accepted, _ = g.InsertBlockHeader(orphanParent, false)
	if !accepted {
		t.Fatalf("parent header should be accepted")
	}

	status, ok = g.StatusOf(orphan.Hash())
	if !ok {
		t.Fatalf("orphan should still be tracked")
	}
	if status == StatusHeaderOnly {
		t.Errorf("orphan should have progressed past StatusHeaderOnly once its parent linked in, got %v", status)
	}
}

func TestGenesisIsGraphReady(t *testing.T) {
	g, gen := newTestGraph()
	status, ok := g.StatusOf(gen.Hash())
	if !ok || status != StatusGraphReady {
		t.Errorf("genesis status = %v (ok=%v), want StatusGraphReady", status, ok)
	}
}

func TestDirectChildBecomesGraphReady(t *testing.T) {
	g, gen := newTestGraph()

	h := header(gen.Hash(), 1, 1)
	accepted, _ := g.InsertBlockHeader(h, false)
	if !accepted {
		t.Fatalf("header rejected")
	}

	block := &types.Block{Header: *h}
	accepted, _ = g.InsertBlock(block, false)
	if !accepted {
		t.Fatalf("block body rejected")
	}

	status, ok := g.StatusOf(h.Hash())
	if !ok || status != StatusGraphReady {
		t.Errorf("status = %v (ok=%v), want StatusGraphReady", status, ok)
	}
}

func TestInvalidDifficultyHeaderIsRejected(t *testing.T) {
	g, gen := newTestGraph()

	bad := header(gen.Hash(), 1, 1)
	bad.Difficulty = 0 // triggers verifyHeaderParams failure

	accepted, _ := g.InsertBlockHeader(bad, true)
	if accepted {
		t.Fatalf("header with invalid difficulty should be rejected")
	}

	status, ok := g.StatusOf(bad.Hash())
	if ok && status != StatusInvalid {
		t.Errorf("status = %v, want StatusInvalid or untracked", status)
	}
}

func TestDuplicateHeaderInsertIsIdempotent(t *testing.T) {
	g, gen := newTestGraph()

	h := header(gen.Hash(), 1, 1)
	accepted1, _ := g.InsertBlockHeader(h, false)
	accepted2, _ := g.InsertBlockHeader(h, false)

	if !accepted1 || !accepted2 {
		t.Fatalf("both inserts should report accepted")
	}
	if _, ok := g.BlockHeaderByHash(h.Hash()); !ok {
		t.Errorf("header should be tracked after insert")
	}
}

func TestContainsBlockFalseForUnknownHash(t *testing.T) {
	g, _ := newTestGraph()
	if g.ContainsBlock(types.Hash("nonexistent")) {
		t.Errorf("unknown hash should not be contained")
	}
}
