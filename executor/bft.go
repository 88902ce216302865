package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tolelom/ghast/crypto"
	"github.com/tolelom/ghast/types"
)

// PreGenesisBlockID is the synthetic parent of the BFT genesis block, since
// no real block precedes it (spec §4.7).
const PreGenesisBlockID types.Hash = "pre-genesis"

// GenesisEpoch is the epoch number the BFT genesis block is committed under.
const GenesisEpoch uint64 = 0

// EventType distinguishes the two contract events the BFT executor
// recognizes inside a transaction's write set (spec §4.7).
type EventType int

const (
	EventNone EventType = iota
	EventValidatorSetChange
	EventPivotSelect
)

// ContractEvent is the single event a BFT transaction's write set must
// carry. Only the field matching Type is populated; real event-payload
// serialization is the external VM's concern (spec §1 Non-goals), so the
// decoded union is carried directly rather than re-derived from bytes.
type ContractEvent struct {
	Type            EventType
	ValidatorChange *ValidatorSetChange
	PivotSelect     *PivotSelect
}

// ValidatorSetChange is EventValidatorSetChange's decoded payload: the next
// validator set, conditioned on proposing at ThisEpoch.
type ValidatorSetChange struct {
	ThisEpoch        uint64
	NextValidatorSet []crypto.PublicKey
}

// PivotSelect is EventPivotSelect's decoded payload: the GHAST pivot block
// this BFT block has observed and wants to anchor to.
type PivotSelect struct {
	PivotHash   types.Hash
	PivotHeight uint64
}

// BFTTransaction is one of at most two transactions a BFT block may carry
// (spec §4.7): a block-metadata transaction with no event, or a user
// transaction whose write set carries exactly one ContractEvent.
type BFTTransaction struct {
	IsAdmin   bool
	Signers   []crypto.PublicKey
	Signature string
	Payload   []byte
	Event     *ContractEvent
}

// ValidatorVerifier holds the registered administrator set and checks
// whether a set of signers commands a quorum of voting power, mirroring
// the Rust executor's `administrators: RwLock<Option<ValidatorVerifier>>`.
type ValidatorVerifier struct {
	mu          sync.RWMutex
	votingPower map[string]uint64 // address -> voting power
	quorumNum   uint64
	quorumDen   uint64
}

// NewValidatorVerifier builds a verifier from a validator set, requiring a
// quorumNum/quorumDen fraction (default 2/3) of total voting power to sign.
func NewValidatorVerifier(set map[string]uint64, quorumNum, quorumDen uint64) *ValidatorVerifier {
	if quorumDen == 0 {
		quorumNum, quorumDen = 2, 3
	}
	vp := make(map[string]uint64, len(set))
	for addr, power := range set {
		vp[addr] = power
	}
	return &ValidatorVerifier{votingPower: vp, quorumNum: quorumNum, quorumDen: quorumDen}
}

// ErrTooLittleVotingPower is returned when the signers collectively hold
// less than the quorum fraction of total voting power.
var ErrTooLittleVotingPower = errors.New("executor: too little voting power in administrators")

// ErrUnknownSigner is returned when a signer address is not a registered
// administrator at all.
var ErrUnknownSigner = errors.New("executor: signer not in administrators")

// CheckVotingPower verifies signers collectively hold quorum voting power.
func (v *ValidatorVerifier) CheckVotingPower(signers []crypto.PublicKey) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var total, signed uint64
	for _, p := range v.votingPower {
		total += p
	}
	seen := make(map[string]bool, len(signers))
	for _, s := range signers {
		addr := s.Address()
		power, ok := v.votingPower[addr]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSigner, addr)
		}
		if !seen[addr] {
			seen[addr] = true
			signed += power
		}
	}
	if signed*v.quorumDen < total*v.quorumNum {
		return fmt.Errorf("%w: %d/%d < %d/%d", ErrTooLittleVotingPower, signed, total, v.quorumNum, v.quorumDen)
	}
	return nil
}

// ProcessedOutput is what execute_block returns to the BFT consensus layer:
// any validator-set reconfiguration and pivot-block selection carried in
// this block's events (spec §4.7's ProcessedVMOutput).
type ProcessedOutput struct {
	NextValidatorSet []crypto.PublicKey
	NextPivotBlock   *PivotSelect
	PivotUpdated     bool
}

// BFTExecutor is the lightweight, standalone executor for the BFT-flavored
// variant of this state machine (spec §4.7): independent of the GHAST
// Executor interface entirely, it admits at most two transactions per
// block and threads pivot/validator-set decisions forward one block at a
// time.
type BFTExecutor struct {
	mu             sync.RWMutex
	administrators *ValidatorVerifier
	genesisBlock   types.Hash
	committed      map[types.Hash]ProcessedOutput
}

// NewBFTExecutor creates an executor with no administrators registered;
// SetAdministrators must be called before any admin-type transaction can
// be admitted.
func NewBFTExecutor() *BFTExecutor {
	return &BFTExecutor{committed: make(map[types.Hash]ProcessedOutput)}
}

// SetAdministrators installs the registered ValidatorVerifier, matching the
// Rust executor's set_administrators.
func (e *BFTExecutor) SetAdministrators(v *ValidatorVerifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.administrators = v
}

// InitGenesis commits a single synthetic genesis block whose parent is
// PreGenesisBlockID, as spec §4.7 requires.
func (e *BFTExecutor) InitGenesis(genesisTx BFTTransaction, id types.Hash) (ProcessedOutput, error) {
	out, err := e.ExecuteBlock([]BFTTransaction{genesisTx}, nil, PreGenesisBlockID, id, GenesisEpoch)
	if err != nil {
		return ProcessedOutput{}, fmt.Errorf("executor: genesis block failed: %w", err)
	}
	e.mu.Lock()
	e.genesisBlock = id
	e.committed[id] = out
	e.mu.Unlock()
	return out, nil
}

// ErrTooManyTransactions is returned when a block carries more than two
// transactions (spec §4.7: "at most two transactions per block").
var ErrTooManyTransactions = errors.New("executor: at most two transactions per block")

// ErrMissingEvent is returned when a transaction's contract event lacks the
// payload its Type names. A transaction with no event at all is treated as a
// block-metadata transaction and skipped.
var ErrMissingEvent = errors.New("executor: a transaction must carry exactly one contract event")

// ErrAdminsNotSet is returned when an admin-type transaction arrives before
// SetAdministrators has been called.
var ErrAdminsNotSet = errors.New("executor: administrators are not set")

// ErrWrongEpoch is returned when a ValidatorSetChange event's ThisEpoch
// does not match currentEpoch.
var ErrWrongEpoch = errors.New("executor: validator set change proposed for the wrong epoch")

// ExecuteBlock runs the transactions of one BFT-flavored block (spec
// §4.7): each admin-type transaction must be signed by quorum voting power
// of the registered administrators, and each admitted transaction's single
// event either reconfigures the validator set or advances the pivot-block
// selection.
func (e *BFTExecutor) ExecuteBlock(transactions []BFTTransaction, lastPivot *PivotSelect, parentID, id types.Hash, currentEpoch uint64) (ProcessedOutput, error) {
	if len(transactions) > 2 {
		return ProcessedOutput{}, ErrTooManyTransactions
	}

	var events []ContractEvent
	for _, tx := range transactions {
		if tx.Event == nil {
			continue // block-metadata transaction: no event to process
		}
		if tx.IsAdmin {
			e.mu.RLock()
			admins := e.administrators
			e.mu.RUnlock()
			if admins == nil {
				return ProcessedOutput{}, ErrAdminsNotSet
			}
			if err := admins.CheckVotingPower(tx.Signers); err != nil {
				return ProcessedOutput{}, err
			}
		}
		events = append(events, *tx.Event)
	}

	out := ProcessedOutput{NextPivotBlock: lastPivot}
	for _, ev := range events {
		switch ev.Type {
		case EventValidatorSetChange:
			if ev.ValidatorChange == nil {
				return ProcessedOutput{}, ErrMissingEvent
			}
			if ev.ValidatorChange.ThisEpoch != currentEpoch {
				return ProcessedOutput{}, fmt.Errorf("%w: block epoch %d, proposal epoch %d", ErrWrongEpoch, currentEpoch, ev.ValidatorChange.ThisEpoch)
			}
			out.NextValidatorSet = ev.ValidatorChange.NextValidatorSet
		case EventPivotSelect:
			if ev.PivotSelect == nil {
				return ProcessedOutput{}, ErrMissingEvent
			}
			sel := *ev.PivotSelect
			out.NextPivotBlock = &sel
			out.PivotUpdated = true
		}
	}
	return out, nil
}

// Commit records a block's ProcessedOutput as finalized, mirroring the
// Rust executor's commit_blocks (ledger-info persistence is out of scope
// here; only the reconfiguration/pivot decision needs to survive).
func (e *BFTExecutor) Commit(id types.Hash, out ProcessedOutput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.committed[id] = out
}

// CommittedOutput returns the ProcessedOutput previously committed for id.
func (e *BFTExecutor) CommittedOutput(id types.Hash) (ProcessedOutput, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out, ok := e.committed[id]
	return out, ok
}

// GenesisBlockID returns the id InitGenesis committed, or the zero hash if
// genesis has not run yet.
func (e *BFTExecutor) GenesisBlockID() types.Hash {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.genesisBlock
}

