package blockdata

import (
	"sync"

	"github.com/tolelom/ghast/types"
)

// MemManager is an in-memory Manager, used by SyncGraph/ConsensusInner tests
// and as LevelDB's in-memory index for the state it does not persist.
type MemManager struct {
	mu sync.RWMutex

	headers map[Hash]*types.Header
	blocks  map[Hash]*types.Block

	status   map[Hash]bool // hash -> partial_invalid
	invalid  map[Hash]bool
	receipts map[Hash]Hash

	results map[Hash]*EpochExecutionResult // keyed by epoch hash
	txAddr  map[Hash]TransactionAddress

	states map[Hash]StateSnapshot

	terminals []Hash
}

// NewMemManager returns an empty in-memory Manager.
func NewMemManager() *MemManager {
	return &MemManager{
		headers:  make(map[Hash]*types.Header),
		blocks:   make(map[Hash]*types.Block),
		status:   make(map[Hash]bool),
		invalid:  make(map[Hash]bool),
		receipts: make(map[Hash]Hash),
		results:  make(map[Hash]*EpochExecutionResult),
		txAddr:   make(map[Hash]TransactionAddress),
		states:   make(map[Hash]StateSnapshot),
	}
}

func (m *MemManager) BlockByHash(h Hash) (*types.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[h]
	return b, ok
}

func (m *MemManager) BlockHeaderByHash(h Hash) (*types.Header, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hd, ok := m.headers[h]
	return hd, ok
}

func (m *MemManager) BlockFromDB(h Hash) (*types.Block, bool) {
	return m.BlockByHash(h)
}

func (m *MemManager) InsertBlockHeader(h Hash, header *types.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[h] = header
}

func (m *MemManager) InsertBlockToKV(h Hash, block *types.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[h] = block
	for i, tx := range block.Transactions {
		m.txAddr[Hash(tx.ID)] = TransactionAddress{BlockHash: h, Index: i}
	}
}

func (m *MemManager) InsertCompactBlock(h Hash, header *types.Header, txHashes []Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[h] = header
}

func (m *MemManager) InsertBlockStatusToDB(h Hash, partialInvalid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[h] = partialInvalid
}

func (m *MemManager) BlockStatusFromDB(h Hash) (bool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.status[h]
	return v, ok
}

func (m *MemManager) InsertReceiptsRoot(epochHash Hash, root Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[epochHash] = root
}

func (m *MemManager) GetReceiptsRoot(epochHash Hash) (Hash, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.receipts[epochHash]
	return v, ok
}

func (m *MemManager) SetBlockResult(epochHash Hash, result *EpochExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[epochHash] = result
}

func (m *MemManager) BlockResultsByHashWithEpoch(_ Hash, epochHash Hash) (*EpochExecutionResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[epochHash]
	return r, ok
}

func (m *MemManager) TransactionAddressByHash(txHash Hash) (TransactionAddress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.txAddr[txHash]
	return a, ok
}

func (m *MemManager) EpochExecuted(h Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.results[h]
	return ok
}

func (m *MemManager) InvalidateBlock(h Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalid[h] = true
}

func (m *MemManager) VerifiedInvalid(h Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invalid[h]
}

func (m *MemManager) RemoveBlockHeader(h Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.headers, h)
}

func (m *MemManager) RemoveBlockFromKV(h Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, h)
}

func (m *MemManager) SetStateNoCommit(epochHash Hash, snap StateSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[epochHash] = snap
}

func (m *MemManager) GetStateNoCommit(epochHash Hash) (StateSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[epochHash]
	return s, ok
}

func (m *MemManager) ContainsState(epochHash Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[epochHash]
	return ok
}

func (m *MemManager) SaveTerminals(hashes []Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminals = append([]Hash(nil), hashes...)
}

func (m *MemManager) LoadTerminals() []Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Hash(nil), m.terminals...)
}
