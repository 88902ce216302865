package consensusgraph

import "testing"

// TestAnticoneBruteForceEmptyOnLinearChain is the maintainer-review
// regression case: a pure linear chain must have an empty anticone at every
// block, since nothing else exists to be concurrent with. The first
// non-genesis block is used deliberately, since its parent (genesis) never
// has a cached anticone entry, forcing computeAnticone down the brute-force
// path that was previously inverted (it returned past(m) instead of
// all \ past(m)).
func TestAnticoneBruteForceEmptyOnLinearChain(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	a := child(gen, 1, 1000)
	in.InsertBlock(a, nil, nil)
	idx, ok := in.IndexOf(a.Hash())
	if !ok {
		t.Fatalf("missing arena index for a")
	}

	anticone := in.computeAnticone(idx)
	if len(anticone) != 0 {
		t.Errorf("anticone of first block on a linear chain = %v, want empty", anticone)
	}
}

// TestAnticoneIncludesConcurrentFork exercises the same brute-force path
// with a genuine fork: the pivot block, inserted before its lighter sibling,
// must show up in that sibling's anticone (neither is in the other's past).
func TestAnticoneIncludesConcurrentFork(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	heavy := child(gen, 1, 1000)
	in.InsertBlock(heavy, nil, nil)
	light := child(gen, 2, 100)
	in.InsertBlock(light, nil, nil)

	heavyIdx, _ := in.IndexOf(heavy.Hash())
	lightIdx, _ := in.IndexOf(light.Hash())

	lightAnticone := in.computeAnticone(lightIdx)
	if !lightAnticone[heavyIdx] {
		t.Errorf("light fork's anticone should include its concurrent sibling: %v", lightAnticone)
	}
}

// TestReorgClearsAndReassignsEpochNumbers covers spec §4.2 steps 10-11: a
// reorg must clear epoch numbers on the abandoned range and reassign them
// along the new pivot chain.
func TestReorgClearsAndReassignsEpochNumbers(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	a := child(gen, 1, 1000)
	in.InsertBlock(a, nil, nil)
	b := child(a, 2, 1000)
	in.InsertBlock(b, nil, nil)

	if _, ok := in.EpochNumber(a.Hash()); !ok {
		t.Fatalf("a should have an epoch number while on the pivot chain")
	}

	heavy := child(gen, 3, 5000)
	res := in.InsertBlock(heavy, nil, nil)
	if !res.Accepted {
		t.Fatalf("heavy fork rejected")
	}

	pivot := in.PivotChain()
	if pivot[len(pivot)-1] != heavy.Hash() {
		t.Fatalf("pivot tip = %s, want heavy fork %s", pivot[len(pivot)-1], heavy.Hash())
	}
	if _, ok := in.EpochNumber(a.Hash()); ok {
		t.Errorf("a's epoch number should be cleared once it falls off the pivot chain")
	}
	heavyEpoch, ok := in.EpochNumber(heavy.Hash())
	if !ok || heavyEpoch != 1 {
		t.Errorf("heavy fork should now own epoch 1, got %d (ok=%v)", heavyEpoch, ok)
	}
}

// TestConfirmationRiskTracksRecentEpochsAndDecaysWithAge exercises the
// §4.5 five-input risk formula end to end: genesis is always fully
// confirmed, and of the maintained window an older (more deeply buried)
// epoch's risk must never exceed a more recent one's.
func TestConfirmationRiskTracksRecentEpochsAndDecaysWithAge(t *testing.T) {
	gen := genesisHeader()
	in := NewInner(gen, testConfig())

	cur := gen
	for i := uint64(1); i <= 20; i++ {
		h := child(cur, i, 1000)
		if res := in.InsertBlock(h, nil, nil); !res.Accepted {
			t.Fatalf("block %d rejected", i)
		}
		cur = h
	}

	if risk, ok := in.RiskOf(in.GenesisIndex()); !ok || risk != 0 {
		t.Errorf("genesis risk = %v (ok=%v), want 0", risk, ok)
	}

	cutoff := len(in.pivotChain) - DeferredStateEpochCount
	if cutoff < MaxNumMaintainedRisk {
		t.Fatalf("test needs a longer chain to exercise the full risk window (cutoff=%d)", cutoff)
	}
	newIdx := in.pivotChain[cutoff]
	oldIdx := in.pivotChain[cutoff-MaxNumMaintainedRisk+1]

	newRisk, newOK := in.RiskOf(newIdx)
	oldRisk, oldOK := in.RiskOf(oldIdx)
	if !newOK || !oldOK {
		t.Fatalf("expected both ends of the maintained risk window to be tracked: new ok=%v old ok=%v", newOK, oldOK)
	}
	if oldRisk > newRisk {
		t.Errorf("older epoch risk %v should not exceed newer epoch risk %v", oldRisk, newRisk)
	}
}
