package types

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/tolelom/ghast/crypto"
)

// Header is the Tree-Graph block header: one parent edge plus zero or more
// referee edges, as described in spec.md §3.
type Header struct {
	ParentHash    Hash   `json:"parent_hash"`
	RefereeHashes []Hash `json:"referee_hashes,omitempty"`
	Height        uint64 `json:"height"`
	Timestamp     int64  `json:"timestamp"`
	Difficulty    uint64 `json:"difficulty"`
	GasLimit      uint64 `json:"gas_limit"`
	TxRoot        Hash   `json:"tx_root"`

	// DeferredStateRoot/DeferredReceiptsRoot are the state/receipts roots of
	// the epoch DEFERRED_STATE_EPOCH_COUNT blocks behind this one (spec §4.2
	// step 7).
	DeferredStateRoot    Hash `json:"deferred_state_root"`
	DeferredReceiptsRoot Hash `json:"deferred_receipts_root"`

	// Adaptive is the miner's claim; ConsensusInner recomputes it and
	// compares (spec §4.2 step 7, §8 testable property).
	Adaptive bool `json:"adaptive"`

	// PowQuality and Nonce stand in for the externally verified
	// proof-of-work (the PoW verifier is out of scope, §1); no code in this
	// module verifies them, whether bench_mode is set or not.
	PowQuality uint64 `json:"pow_quality"`
	Nonce      uint64 `json:"nonce"`

	// Miner is the hex-encoded public key credited with the block reward;
	// not part of the original Conflux header but needed to give the
	// reward-execution inputs of spec §4.2 step 12 / §4.6 a recipient.
	Miner string `json:"miner"`
}

// Block couples a Header with its transaction body.
type Block struct {
	Header       Header         `json:"header"`
	Transactions []*Transaction `json:"transactions"`
}

// headerHashBody is the subset of Header fields that participate in the
// block hash; Adaptive is deliberately included since it is part of the
// miner's claim and must be covered so a dishonest relay cannot flip it.
type headerHashBody struct {
	ParentHash           Hash   `json:"parent_hash"`
	RefereeHashes        []Hash `json:"referee_hashes,omitempty"`
	Height               uint64 `json:"height"`
	Timestamp            int64  `json:"timestamp"`
	Difficulty           uint64 `json:"difficulty"`
	GasLimit             uint64 `json:"gas_limit"`
	TxRoot               Hash   `json:"tx_root"`
	DeferredStateRoot    Hash   `json:"deferred_state_root"`
	DeferredReceiptsRoot Hash   `json:"deferred_receipts_root"`
	Adaptive             bool   `json:"adaptive"`
	PowQuality           uint64 `json:"pow_quality"`
	Nonce                uint64 `json:"nonce"`
	Miner                string `json:"miner"`
}

// Hash returns the sha256 hash of the JSON-encoded header.
// Returns an empty Hash if marshalling fails, which cannot happen in
// practice since Header contains no unmarshalable fields.
func (h Header) Hash() Hash {
	body := headerHashBody{
		ParentHash:           h.ParentHash,
		RefereeHashes:        h.RefereeHashes,
		Height:               h.Height,
		Timestamp:            h.Timestamp,
		Difficulty:           h.Difficulty,
		GasLimit:             h.GasLimit,
		TxRoot:               h.TxRoot,
		DeferredStateRoot:    h.DeferredStateRoot,
		DeferredReceiptsRoot: h.DeferredReceiptsRoot,
		Adaptive:             h.Adaptive,
		PowQuality:           h.PowQuality,
		Nonce:                h.Nonce,
		Miner:                h.Miner,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return Hash(crypto.Hash(data))
}

// IsHeavy reports whether the header's PoW quality is at least
// heavyRatio * difficulty, per spec §3's "heavy block" definition.
// heavyRatio is expressed as a ratio scaled by 1000 (so the default
// heavy_block_difficulty_ratio of 240 means 0.24).
func (h Header) IsHeavy(heavyRatioPerMille uint64) bool {
	// pow_quality >= heavy_ratio * difficulty, heavy_ratio = heavyRatioPerMille/1000
	return h.PowQuality*1000 >= heavyRatioPerMille*h.Difficulty
}

// ComputeTxRoot builds a deterministic root hash from all transaction IDs,
// length-prefixing each ID to avoid boundary-ambiguity collisions between
// different transaction sets.
func ComputeTxRoot(txs []*Transaction) Hash {
	if len(txs) == 0 {
		return Hash(crypto.Hash([]byte("empty")))
	}
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, tx := range txs {
		id := []byte(tx.ID)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(id)))
		buf.Write(lenBuf[:])
		buf.Write(id)
	}
	return Hash(crypto.Hash(buf.Bytes()))
}

// EmptyReceiptsRoot is the canonical root for an epoch whose blocks have not
// yet produced any receipts (used for the first DEFERRED_STATE_EPOCH_COUNT
// blocks, spec §8 boundary behavior).
var EmptyReceiptsRoot = Hash(crypto.Hash([]byte("empty-receipts")))
