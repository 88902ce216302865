package blockdata

import (
	"testing"

	"github.com/tolelom/ghast/types"
)

func TestMemManagerHeaderRoundTrip(t *testing.T) {
	m := NewMemManager()
	h := &types.Header{Height: 1, Difficulty: 1000}
	hash := Hash("b1")

	if _, ok := m.BlockHeaderByHash(hash); ok {
		t.Fatalf("header should not exist yet")
	}
	m.InsertBlockHeader(hash, h)

	got, ok := m.BlockHeaderByHash(hash)
	if !ok || got.Height != 1 {
		t.Errorf("BlockHeaderByHash = %+v (ok=%v), want height 1", got, ok)
	}

	m.RemoveBlockHeader(hash)
	if _, ok := m.BlockHeaderByHash(hash); ok {
		t.Errorf("header should be gone after RemoveBlockHeader")
	}
}

func TestMemManagerBlockBodyIndexesTransactions(t *testing.T) {
	m := NewMemManager()
	block := &types.Block{
		Header: types.Header{Height: 1},
		Transactions: []*types.Transaction{
			{ID: "tx1"},
			{ID: "tx2"},
		},
	}
	m.InsertBlockToKV(Hash("b1"), block)

	addr, ok := m.TransactionAddressByHash(Hash("tx2"))
	if !ok {
		t.Fatalf("expected tx2 to be indexed")
	}
	if addr.BlockHash != Hash("b1") || addr.Index != 1 {
		t.Errorf("addr = %+v, want {b1 1}", addr)
	}
}

func TestMemManagerInvalidateAndVerifiedInvalid(t *testing.T) {
	m := NewMemManager()
	hash := Hash("bad-block")

	if m.VerifiedInvalid(hash) {
		t.Fatalf("block should not be invalid before InvalidateBlock")
	}
	m.InvalidateBlock(hash)
	if !m.VerifiedInvalid(hash) {
		t.Errorf("block should be invalid after InvalidateBlock")
	}
}

func TestMemManagerEpochResultAndExecutedFlag(t *testing.T) {
	m := NewMemManager()
	epoch := Hash("epoch-1")

	if m.EpochExecuted(epoch) {
		t.Fatalf("epoch should not be executed before SetBlockResult")
	}
	m.SetBlockResult(epoch, &EpochExecutionResult{StateRoot: "sr", ReceiptsRoot: "rr"})

	if !m.EpochExecuted(epoch) {
		t.Errorf("epoch should be executed after SetBlockResult")
	}
	res, ok := m.BlockResultsByHashWithEpoch("", epoch)
	if !ok || res.StateRoot != "sr" {
		t.Errorf("BlockResultsByHashWithEpoch = %+v (ok=%v), want state root sr", res, ok)
	}
}

func TestMemManagerTerminalsRoundTrip(t *testing.T) {
	m := NewMemManager()
	want := []Hash{"a", "b", "c"}
	m.SaveTerminals(want)

	got := m.LoadTerminals()
	if len(got) != len(want) {
		t.Fatalf("LoadTerminals returned %d hashes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("terminal[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// LoadTerminals must return an independent copy.
	got[0] = "mutated"
	if m.LoadTerminals()[0] != "a" {
		t.Errorf("mutating the returned slice should not affect stored terminals")
	}
}
