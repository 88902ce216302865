// Package indexer maintains secondary lookup tables over the Tree-Graph so
// RPC callers can query "blocks by miner" or "partial-invalid blocks"
// without scanning the whole arena.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tolelom/ghast/blockdata"
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/storage"
)

const (
	prefixMinerBlocks   = "idx:miner:block:"
	prefixPartialInvalid = "idx:partial_invalid:"
)

// Indexer subscribes to Tree-Graph events and updates secondary lookup
// tables keyed by miner and by validity status.
type Indexer struct {
	db      storage.DB
	dataMan blockdata.Manager
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, dataMan blockdata.Manager, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, dataMan: dataMan, emitter: emitter}
	emitter.Subscribe(events.EventBlockGraphReady, idx.onBlockGraphReady)
	emitter.Subscribe(events.EventPartialInvalid, idx.onPartialInvalid)
	return idx
}

// BlocksByMiner returns all block hashes credited to the given miner
// pubkey (hex-encoded), in the order they were admitted.
func (idx *Indexer) BlocksByMiner(miner string) ([]string, error) {
	return idx.getList(prefixMinerBlocks + miner)
}

// PartialInvalidBlocks returns every hash ever flagged partial_invalid.
func (idx *Indexer) PartialInvalidBlocks() ([]string, error) {
	return idx.getList(prefixPartialInvalid)
}

func (idx *Indexer) onBlockGraphReady(ev events.Event) {
	hash, _ := ev.Data["hash"].(string)
	if hash == "" {
		return
	}
	header, ok := idx.dataMan.BlockHeaderByHash(blockdata.Hash(hash))
	if !ok || header.Miner == "" {
		return
	}
	if err := idx.addToList(prefixMinerBlocks+header.Miner, hash); err != nil {
		log.Printf("[indexer] miner index write failed (miner=%s hash=%s): %v", header.Miner, hash, err)
	}
}

func (idx *Indexer) onPartialInvalid(ev events.Event) {
	hash, _ := ev.Data["hash"].(string)
	if hash == "" {
		return
	}
	if err := idx.addToList(prefixPartialInvalid, hash); err != nil {
		log.Printf("[indexer] partial-invalid index write failed (hash=%s): %v", hash, err)
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	for _, id := range ids {
		if id == value {
			return nil // already present
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
