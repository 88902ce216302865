package consensusgraph

import (
	"testing"

	"github.com/tolelom/ghast/config"
	"github.com/tolelom/ghast/types"
)

func testConfig() config.ConsensusConfig {
	return config.DefaultConsensusConfig()
}

func genesisHeader() *types.Header {
	return &types.Header{
		Height:     0,
		Difficulty: 1000,
		TxRoot:     types.Hash("genesis-tx-root"),
	}
}

// child builds a header extending parent with a given nonce (for hash
// uniqueness) and difficulty.
func child(parent *types.Header, nonce, difficulty uint64, referees ...types.Hash) *types.Header {
	return &types.Header{
		ParentHash:    parent.Hash(),
		RefereeHashes: referees,
		Height:        parent.Height + 1,
		Difficulty:    difficulty,
		Nonce:         nonce,
		TxRoot:        types.Hash("tx-root"),
	}
}

func TestLinearChainExtendsPivot(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	cur := gen
	var tip types.Hash
	for i := uint64(1); i <= 5; i++ {
		h := child(cur, i, 1000)
		res := in.InsertBlock(h, nil, nil)
		if !res.Accepted {
			t.Fatalf("block %d not accepted", i)
		}
		if res.PartialInvalid {
			t.Fatalf("block %d unexpectedly partial invalid", i)
		}
		tip = h.Hash()
		cur = h
	}

	if in.PivotChainLen() != 6 { // genesis + 5 blocks
		t.Fatalf("pivot chain length = %d, want 6", in.PivotChainLen())
	}
	pivot := in.PivotChain()
	if pivot[len(pivot)-1] != tip {
		t.Errorf("pivot tip = %s, want %s", pivot[len(pivot)-1], tip)
	}

	term := in.Terminals()
	if len(term) != 1 || term[0] != tip {
		t.Errorf("terminals = %v, want [%s]", term, tip)
	}
}

func TestForkHeavierBranchWinsPivot(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	light := child(gen, 1, 100)
	heavy := child(gen, 2, 5000)

	if res := in.InsertBlock(light, nil, nil); !res.Accepted {
		t.Fatalf("light block rejected")
	}
	if res := in.InsertBlock(heavy, nil, nil); !res.Accepted {
		t.Fatalf("heavy block rejected")
	}

	pivot := in.PivotChain()
	if got := pivot[len(pivot)-1]; got != heavy.Hash() {
		t.Errorf("pivot tip = %s, want heavy block %s", got, heavy.Hash())
	}
	if len(in.Terminals()) != 2 {
		t.Errorf("terminals = %d, want 2 (both branches are leaves)", len(in.Terminals()))
	}
}

func TestRejectsUnknownParent(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	orphan := &types.Header{
		ParentHash: types.Hash("does-not-exist"),
		Height:     1,
		Difficulty: 1000,
		Nonce:      99,
	}
	res := in.InsertBlock(orphan, nil, nil)
	if res.Accepted {
		t.Errorf("orphan block should be rejected")
	}
}

func TestDuplicateInsertIsIdempotent(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	h := child(gen, 1, 1000)
	first := in.InsertBlock(h, nil, nil)
	second := in.InsertBlock(h, nil, nil)

	if !first.Accepted || !second.Accepted {
		t.Fatalf("both inserts should report accepted")
	}
	if in.PivotChainLen() != 2 {
		t.Errorf("pivot chain length = %d, want 2 (duplicate must not double-insert)", in.PivotChainLen())
	}
}

func TestRefereeContributesToEpoch(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	a := child(gen, 1, 1000)
	in.InsertBlock(a, nil, nil)

	b := child(a, 2, 1000)
	// side block referencing a's sibling position: build an independent
	// block off genesis that b references.
	side := child(gen, 3, 10)
	in.InsertBlock(side, nil, nil)

	res := in.InsertBlock(b, []types.Hash{side.Hash()}, nil)
	if !res.Accepted {
		t.Fatalf("block with referee not accepted")
	}

	ordered, ok := in.OrderedEpochBlocks(b.Hash())
	if !ok {
		t.Fatalf("expected b to be a pivot block with an epoch set")
	}
	found := false
	for _, h := range ordered {
		if h == side.Hash() {
			found = true
		}
	}
	if !found {
		t.Errorf("referenced side block not present in b's epoch set: %v", ordered)
	}

	epoch, ok := in.EpochNumber(side.Hash())
	if !ok {
		t.Errorf("side block should have received an epoch number")
	}
	bEpoch, _ := in.EpochNumber(b.Hash())
	if epoch != bEpoch {
		t.Errorf("side block epoch %d != pivot block epoch %d", epoch, bEpoch)
	}
}

func TestGenesisIsStableAndNotPartialInvalid(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	if in.IsPartialInvalid(gen.Hash()) {
		t.Errorf("genesis must never be partial invalid")
	}
	stable, ok := in.Stable(gen.Hash())
	if !ok || !stable {
		t.Errorf("genesis must be stable, got stable=%v ok=%v", stable, ok)
	}
}
