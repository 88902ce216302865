package executor

import (
	"testing"

	"github.com/tolelom/ghast/crypto"
)

func genKey(t *testing.T) crypto.PublicKey {
	t.Helper()
	_, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return pub
}

func TestCheckVotingPowerQuorum(t *testing.T) {
	a, b, c := genKey(t), genKey(t), genKey(t)
	set := map[string]uint64{
		a.Address(): 1,
		b.Address(): 1,
		c.Address(): 1,
	}
	v := NewValidatorVerifier(set, 0, 0) // default 2/3

	if err := v.CheckVotingPower([]crypto.PublicKey{a}); err == nil {
		t.Errorf("one of three signers should not reach 2/3 quorum")
	}
	if err := v.CheckVotingPower([]crypto.PublicKey{a, b}); err != nil {
		t.Errorf("two of three signers should reach 2/3 quorum, got %v", err)
	}
}

func TestCheckVotingPowerUnknownSigner(t *testing.T) {
	a := genKey(t)
	outsider := genKey(t)
	v := NewValidatorVerifier(map[string]uint64{a.Address(): 1}, 1, 1)

	if err := v.CheckVotingPower([]crypto.PublicKey{outsider}); err == nil {
		t.Errorf("expected ErrUnknownSigner for a non-administrator signer")
	}
}

func TestExecuteBlockRejectsTooManyTransactions(t *testing.T) {
	e := NewBFTExecutor()
	txs := make([]BFTTransaction, 3)
	_, err := e.ExecuteBlock(txs, nil, PreGenesisBlockID, "b1", 0)
	if err != ErrTooManyTransactions {
		t.Errorf("err = %v, want ErrTooManyTransactions", err)
	}
}

func TestExecuteBlockValidatorSetChange(t *testing.T) {
	a := genKey(t)
	e := NewBFTExecutor()
	e.SetAdministrators(NewValidatorVerifier(map[string]uint64{a.Address(): 1}, 1, 1))

	next := genKey(t)
	tx := BFTTransaction{
		IsAdmin: true,
		Signers: []crypto.PublicKey{a},
		Event: &ContractEvent{
			Type:            EventValidatorSetChange,
			ValidatorChange: &ValidatorSetChange{ThisEpoch: 5, NextValidatorSet: []crypto.PublicKey{next}},
		},
	}

	out, err := e.ExecuteBlock([]BFTTransaction{tx}, nil, "parent", "b1", 5)
	if err != nil {
		t.Fatalf("ExecuteBlock error: %v", err)
	}
	if len(out.NextValidatorSet) != 1 || out.NextValidatorSet[0].Address() != next.Address() {
		t.Errorf("NextValidatorSet = %v, want [%s]", out.NextValidatorSet, next.Address())
	}
}

func TestExecuteBlockRejectsWrongEpoch(t *testing.T) {
	a := genKey(t)
	e := NewBFTExecutor()
	e.SetAdministrators(NewValidatorVerifier(map[string]uint64{a.Address(): 1}, 1, 1))

	tx := BFTTransaction{
		IsAdmin: true,
		Signers: []crypto.PublicKey{a},
		Event: &ContractEvent{
			Type:            EventValidatorSetChange,
			ValidatorChange: &ValidatorSetChange{ThisEpoch: 9},
		},
	}

	_, err := e.ExecuteBlock([]BFTTransaction{tx}, nil, "parent", "b1", 5)
	if err == nil {
		t.Errorf("expected ErrWrongEpoch when ThisEpoch != currentEpoch")
	}
}

func TestExecuteBlockRejectsAdminTxWithoutAdministrators(t *testing.T) {
	a := genKey(t)
	e := NewBFTExecutor()

	tx := BFTTransaction{
		IsAdmin: true,
		Signers: []crypto.PublicKey{a},
		Event:   &ContractEvent{Type: EventPivotSelect, PivotSelect: &PivotSelect{PivotHash: "p"}},
	}

	_, err := e.ExecuteBlock([]BFTTransaction{tx}, nil, "parent", "b1", 0)
	if err != ErrAdminsNotSet {
		t.Errorf("err = %v, want ErrAdminsNotSet", err)
	}
}

func TestExecuteBlockPivotSelect(t *testing.T) {
	e := NewBFTExecutor()
	tx := BFTTransaction{
		Event: &ContractEvent{
			Type:        EventPivotSelect,
			PivotSelect: &PivotSelect{PivotHash: "pivot-7", PivotHeight: 7},
		},
	}

	out, err := e.ExecuteBlock([]BFTTransaction{tx}, nil, "parent", "b1", 0)
	if err != nil {
		t.Fatalf("ExecuteBlock error: %v", err)
	}
	if !out.PivotUpdated || out.NextPivotBlock == nil || out.NextPivotBlock.PivotHash != "pivot-7" {
		t.Errorf("out = %+v, want PivotUpdated with pivot-7", out)
	}
}

func TestInitGenesisCommitsUnderPreGenesisParent(t *testing.T) {
	e := NewBFTExecutor()
	genesisTx := BFTTransaction{}

	out, err := e.InitGenesis(genesisTx, "genesis-id")
	if err != nil {
		t.Fatalf("InitGenesis error: %v", err)
	}
	if e.GenesisBlockID() != "genesis-id" {
		t.Errorf("GenesisBlockID() = %s, want genesis-id", e.GenesisBlockID())
	}
	committed, ok := e.CommittedOutput("genesis-id")
	if !ok {
		t.Fatalf("expected genesis block to be committed")
	}
	if committed.PivotUpdated != out.PivotUpdated {
		t.Errorf("committed output mismatch: %+v vs %+v", committed, out)
	}
}

func TestBlockMetadataTransactionWithoutEventIsANoOp(t *testing.T) {
	e := NewBFTExecutor()
	tx := BFTTransaction{Payload: []byte("metadata")}

	out, err := e.ExecuteBlock([]BFTTransaction{tx}, nil, "parent", "b1", 0)
	if err != nil {
		t.Fatalf("ExecuteBlock error: %v", err)
	}
	if out.PivotUpdated || out.NextValidatorSet != nil {
		t.Errorf("metadata-only transaction should not change consensus state, got %+v", out)
	}
}
