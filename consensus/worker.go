// Package consensus drives ConsensusInner from SyncGraph's GRAPH_READY
// stream. A single worker goroutine consumes the ready channel in FIFO
// order (spec §5's "single Consensus Worker"), so ConsensusInner itself
// never needs to be safe for concurrent writers; readers still go through
// a RWMutex since RPC/debug queries run concurrently with the worker.
package consensus

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tolelom/ghast/blockdata"
	"github.com/tolelom/ghast/config"
	"github.com/tolelom/ghast/consensusgraph"
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/executor"
	"github.com/tolelom/ghast/syncgraph"
	"github.com/tolelom/ghast/types"
)

// totalWeightRolloverInterval is how often the confirmation-risk formula's
// past-2d weight delta (spec §4.5's w_4) is rolled over; the original drives
// this from the sync layer on an external timer rather than per-block.
const totalWeightRolloverInterval = 10 * time.Minute

// Worker owns ConsensusInner and the goroutine that feeds it.
type Worker struct {
	mu    sync.RWMutex
	inner *consensusgraph.Inner

	sg      *syncgraph.Graph
	dataMan blockdata.Manager
	exec    executor.Executor
	emitter *events.Emitter

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Worker over the given genesis header; call Start to begin
// draining sg's ready channel.
func New(genesis *types.Header, cfg config.ConsensusConfig, sg *syncgraph.Graph, dataMan blockdata.Manager, exec executor.Executor, emitter *events.Emitter) *Worker {
	return &Worker{
		inner:   consensusgraph.NewInner(genesis, cfg),
		sg:      sg,
		dataMan: dataMan,
		exec:    exec,
		emitter: emitter,
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Safe to call once.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop signals the consumer goroutine to exit and waits for it.
func (w *Worker) Stop() {
	close(w.done)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(totalWeightRolloverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			w.inner.UpdateTotalWeightInPast()
			w.mu.Unlock()
		case hash, ok := <-w.sg.Ready():
			if !ok {
				return
			}
			if err := w.process(hash); err != nil {
				log.Printf("[consensus] insert %s failed: %v", hash, err)
			}
		}
	}
}

func (w *Worker) process(hash types.Hash) error {
	header, ok := w.sg.BlockHeaderByHash(hash)
	if !ok {
		return fmt.Errorf("header for %s not found in syncgraph", hash)
	}

	w.mu.Lock()
	result := w.inner.InsertBlock(header, header.RefereeHashes, w.exec)
	w.mu.Unlock()

	if !result.Accepted {
		return fmt.Errorf("block %s rejected by consensus (unknown parent)", hash)
	}
	if w.emitter != nil {
		if result.PartialInvalid {
			w.emitter.Emit(events.Event{Type: events.EventPartialInvalid, Data: map[string]any{"hash": string(hash)}})
		}
		if result.PivotExtended {
			w.emitter.Emit(events.Event{Type: events.EventPivotExtended, Data: map[string]any{"tip": string(result.NewPivotTip)}})
		}
	}
	return nil
}

// PivotChain returns a snapshot of the current pivot chain hashes.
func (w *Worker) PivotChain() []types.Hash {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inner.PivotChain()
}

// Terminals returns the current terminal hashes.
func (w *Worker) Terminals() []types.Hash {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inner.Terminals()
}

// EpochNumber returns the epoch assigned to hash, if any.
func (w *Worker) EpochNumber(hash types.Hash) (int64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inner.EpochNumber(hash)
}

// RiskOf returns the maintained confirmation risk for hash's pivot block,
// if tracked.
func (w *Worker) RiskOf(hash types.Hash) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx, ok := w.inner.IndexOf(hash)
	if !ok {
		return 0, false
	}
	return w.inner.RiskOf(idx)
}
