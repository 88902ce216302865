package types

import (
	"encoding/json"
	"errors"

	"github.com/tolelom/ghast/crypto"
)

// MaxTransactionSize bounds a single transaction's encoded payload, enforced
// by verify_block_basic (spec §4.1).
const MaxTransactionSize = 64 * 1024

// MaxBlockSize bounds the total encoded size of a block's transaction body,
// enforced by verify_block_basic (spec §4.1).
const MaxBlockSize = 4 * 1024 * 1024

// Transaction is the minimal envelope SyncGraph's body-level validation
// needs. Transaction *semantics* (what the payload does to state) is the
// external Executor's concern, per spec §1 Non-goals; this type only
// carries enough to compute a transaction root and check signature
// presence.
type Transaction struct {
	ID        string          `json:"id"`
	From      string          `json:"from"` // hex-encoded public key
	Payload   json.RawMessage `json:"payload,omitempty"`
	Signature string          `json:"signature"`
}

// ErrMissingSignature is returned by VerifyBasic when a transaction carries
// no signature at all (verify_block_basic's "signature presence" check).
var ErrMissingSignature = errors.New("types: transaction has no signature")

// ErrTransactionTooLarge is returned when a transaction's payload exceeds
// MaxTransactionSize.
var ErrTransactionTooLarge = errors.New("types: transaction exceeds maximum size")

// VerifyBasic checks the structural properties verify_block_basic requires
// of every transaction: signature presence and size. It does not verify the
// signature cryptographically against From — that is folded into the
// Executor's full validation, since the core has no notion of account
// nonces or balances.
func (tx *Transaction) VerifyBasic() error {
	if tx.Signature == "" {
		return ErrMissingSignature
	}
	if len(tx.Payload) > MaxTransactionSize {
		return ErrTransactionTooLarge
	}
	return nil
}

// Size returns the approximate encoded size of the transaction, used for
// the block-size limit check.
func (tx *Transaction) Size() int {
	return len(tx.ID) + len(tx.From) + len(tx.Payload) + len(tx.Signature)
}

// VerifyBlockBasic implements spec §4.1's body-level validation: the
// transaction root must match, the encoded size must be within bounds, and
// every transaction must carry a signature.
func VerifyBlockBasic(b *Block) error {
	total := 0
	for _, tx := range b.Transactions {
		if err := tx.VerifyBasic(); err != nil {
			return err
		}
		total += tx.Size()
	}
	if total > MaxBlockSize {
		return errors.New("types: block exceeds maximum size")
	}
	if root := ComputeTxRoot(b.Transactions); root != b.Header.TxRoot {
		return errors.New("types: tx_root mismatch")
	}
	return nil
}

// NewTransaction creates an unsigned transaction envelope around payload.
func NewTransaction(from string, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Transaction{From: from, Payload: raw}, nil
}

// Sign computes the transaction ID (hash of From+Payload) and signs it with
// priv, mirroring the teacher's Transaction.Sign.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	data, _ := json.Marshal(struct {
		From    string          `json:"from"`
		Payload json.RawMessage `json:"payload"`
	}{tx.From, tx.Payload})
	tx.ID = crypto.Hash(data)
	tx.Signature = crypto.Sign(priv, []byte(tx.ID))
}
