package blockdata

import (
	"encoding/json"

	"github.com/tolelom/ghast/storage"
	"github.com/tolelom/ghast/types"
)

// Column-prefix constants mirroring spec §6's persisted-state layout:
// headers/bodies/status/receipts-root each get their own key prefix, and
// terminals live under a single fixed key, standing in for a dedicated
// COL_MISC column family (goleveldb has no column families).
const (
	prefixHeader   = "header:"
	prefixBlock    = "block:"
	prefixStatus   = "status:"
	prefixReceipts = "receipts:"
	keyTerminals   = "terminals"
)

// LevelDB is a storage.DB-backed Manager, persisting the subset of state
// spec §6 calls out: headers, bodies, block status, receipts roots, and the
// terminal set. Invalid-block memoization, transaction-address lookups, and
// state snapshots stay in memory, since they are either derivable from the
// persisted blocks or owned by the external Executor.
type LevelDB struct {
	db *MemManager // in-memory indices not covered by the persisted layout
	kv storage.DB
}

// NewLevelDB wraps an already-open storage.DB as a Manager.
func NewLevelDB(kv storage.DB) *LevelDB {
	return &LevelDB{db: NewMemManager(), kv: kv}
}

func (l *LevelDB) BlockHeaderByHash(h Hash) (*types.Header, bool) {
	data, err := l.kv.Get([]byte(prefixHeader + string(h)))
	if err != nil {
		return nil, false
	}
	var hd types.Header
	if json.Unmarshal(data, &hd) != nil {
		return nil, false
	}
	return &hd, true
}

func (l *LevelDB) InsertBlockHeader(h Hash, header *types.Header) {
	data, err := json.Marshal(header)
	if err != nil {
		return
	}
	_ = l.kv.Set([]byte(prefixHeader+string(h)), data)
}

func (l *LevelDB) InsertCompactBlock(h Hash, header *types.Header, _ []Hash) {
	l.InsertBlockHeader(h, header)
}

func (l *LevelDB) BlockByHash(h Hash) (*types.Block, bool) {
	return l.BlockFromDB(h)
}

func (l *LevelDB) BlockFromDB(h Hash) (*types.Block, bool) {
	data, err := l.kv.Get([]byte(prefixBlock + string(h)))
	if err != nil {
		return nil, false
	}
	var b types.Block
	if json.Unmarshal(data, &b) != nil {
		return nil, false
	}
	return &b, true
}

func (l *LevelDB) InsertBlockToKV(h Hash, block *types.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		return
	}
	_ = l.kv.Set([]byte(prefixBlock+string(h)), data)
	l.db.InsertBlockToKV(h, block)
}

func (l *LevelDB) InsertBlockStatusToDB(h Hash, partialInvalid bool) {
	v := []byte{0}
	if partialInvalid {
		v = []byte{1}
	}
	_ = l.kv.Set([]byte(prefixStatus+string(h)), v)
}

func (l *LevelDB) BlockStatusFromDB(h Hash) (bool, bool) {
	v, err := l.kv.Get([]byte(prefixStatus + string(h)))
	if err != nil || len(v) == 0 {
		return false, false
	}
	return v[0] == 1, true
}

func (l *LevelDB) InsertReceiptsRoot(epochHash Hash, root Hash) {
	_ = l.kv.Set([]byte(prefixReceipts+string(epochHash)), []byte(root))
}

func (l *LevelDB) GetReceiptsRoot(epochHash Hash) (Hash, bool) {
	v, err := l.kv.Get([]byte(prefixReceipts + string(epochHash)))
	if err != nil {
		return "", false
	}
	return Hash(v), true
}

func (l *LevelDB) SaveTerminals(hashes []Hash) {
	data, err := json.Marshal(hashes)
	if err != nil {
		return
	}
	_ = l.kv.Set([]byte(keyTerminals), data)
}

func (l *LevelDB) LoadTerminals() []Hash {
	data, err := l.kv.Get([]byte(keyTerminals))
	if err != nil {
		return nil
	}
	var hashes []Hash
	if json.Unmarshal(data, &hashes) != nil {
		return nil
	}
	return hashes
}

// The remaining Manager methods (invalid memoization, results/tx-address
// cache, state snapshots) delegate to the in-memory index: they are either
// rebuilt from the Executor at startup or genuinely transient per spec §6
// (the external Executor, not blockdata, owns durable state storage).

func (l *LevelDB) BlockResultsByHashWithEpoch(h, epochHash Hash) (*EpochExecutionResult, bool) {
	return l.db.BlockResultsByHashWithEpoch(h, epochHash)
}

func (l *LevelDB) TransactionAddressByHash(txHash Hash) (TransactionAddress, bool) {
	return l.db.TransactionAddressByHash(txHash)
}

func (l *LevelDB) EpochExecuted(h Hash) bool {
	return l.db.EpochExecuted(h)
}

func (l *LevelDB) InvalidateBlock(h Hash) {
	l.db.InvalidateBlock(h)
}

func (l *LevelDB) VerifiedInvalid(h Hash) bool {
	return l.db.VerifiedInvalid(h)
}

func (l *LevelDB) RemoveBlockHeader(h Hash) {
	_ = l.kv.Delete([]byte(prefixHeader + string(h)))
}

func (l *LevelDB) RemoveBlockFromKV(h Hash) {
	_ = l.kv.Delete([]byte(prefixBlock + string(h)))
}

func (l *LevelDB) GetStateNoCommit(epochHash Hash) (StateSnapshot, bool) {
	return l.db.GetStateNoCommit(epochHash)
}

func (l *LevelDB) ContainsState(epochHash Hash) bool {
	return l.db.ContainsState(epochHash)
}

// SetBlockResult records a completed epoch execution result, for the
// Executor to call back into once wait_for_result resolves.
func (l *LevelDB) SetBlockResult(epochHash Hash, result *EpochExecutionResult) {
	l.db.SetBlockResult(epochHash, result)
}
