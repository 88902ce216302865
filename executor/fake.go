package executor

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/tolelom/ghast/crypto"
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/types"
)

// FakeExecutor is an in-memory Executor, standing in for the real state-trie
// executor spec §1 places out of scope. It executes no transactions: its flat
// key-value world state is never written, the state root is a deterministic
// hash of that state's sorted key-value pairs — the same technique the
// teacher's state layer uses for its account/asset roots — and the receipts
// root is a hash of the epoch's sorted block hashes.
type FakeExecutor struct {
	mu      sync.Mutex
	state   map[string][]byte
	results map[Hash]epochResult
	ready   map[Hash]chan struct{}
	emitter *events.Emitter

	queue chan EpochExecutionTask
	done  chan struct{}
	wg    sync.WaitGroup
}

type epochResult struct {
	root     StateRootWithAux
	receipts Hash
	err      error
}

// NewFakeExecutor starts a FakeExecutor with a background worker draining
// its enqueue channel, mirroring the teacher's single-consumer worker
// pattern used elsewhere in this codebase.
func NewFakeExecutor(emitter *events.Emitter) *FakeExecutor {
	e := &FakeExecutor{
		state:   make(map[string][]byte),
		results: make(map[Hash]epochResult),
		ready:   make(map[Hash]chan struct{}),
		emitter: emitter,
		queue:   make(chan EpochExecutionTask, 256),
		done:    make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *FakeExecutor) run() {
	defer e.wg.Done()
	for {
		select {
		case task, ok := <-e.queue:
			if !ok {
				return
			}
			root, receipts, err := e.ComputeEpoch(context.Background(), task)
			e.deliver(task.PivotHash, root, receipts, err)
		case <-e.done:
			for {
				select {
				case task := <-e.queue:
					root, receipts, err := e.ComputeEpoch(context.Background(), task)
					e.deliver(task.PivotHash, root, receipts, err)
				default:
					return
				}
			}
		}
	}
}

func (e *FakeExecutor) deliver(pivot Hash, root StateRootWithAux, receipts Hash, err error) {
	e.mu.Lock()
	e.results[pivot] = epochResult{root: root, receipts: receipts, err: err}
	ch, ok := e.ready[pivot]
	e.mu.Unlock()
	if ok {
		close(ch)
	}
}

// EnqueueEpoch submits task to the background worker, returning
// immediately.
func (e *FakeExecutor) EnqueueEpoch(task EpochExecutionTask) {
	e.mu.Lock()
	if _, ok := e.ready[task.PivotHash]; !ok {
		e.ready[task.PivotHash] = make(chan struct{})
	}
	e.mu.Unlock()
	select {
	case e.queue <- task:
	case <-e.done:
	}
}

// ComputeEpoch returns the epoch's roots synchronously: the receipts root
// from the epoch's block hashes and the state root from the current world
// state, which it does not modify. It records no result for WaitForResult.
func (e *FakeExecutor) ComputeEpoch(_ context.Context, task EpochExecutionTask) (StateRootWithAux, Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var receiptIDs []string
	for _, h := range task.OrderedEpochHashes {
		receiptIDs = append(receiptIDs, string(h))
	}
	receiptsRoot := computeListRoot(receiptIDs)

	stateRoot := e.computeRootLocked()
	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type: events.EventEpochSettled,
			Data: map[string]any{
				"pivot_hash": string(task.PivotHash),
				"state_root": string(stateRoot),
			},
		})
	}
	return StateRootWithAux{StateRoot: stateRoot}, receiptsRoot, nil
}

// WaitForResult blocks until pivotHash's epoch has been computed by the
// background worker after EnqueueEpoch, or until ctx is done. A direct
// ComputeEpoch call does not record a result, so it does not release a wait.
func (e *FakeExecutor) WaitForResult(ctx context.Context, pivotHash Hash) (StateRootWithAux, Hash, error) {
	e.mu.Lock()
	if r, ok := e.results[pivotHash]; ok {
		e.mu.Unlock()
		return r.root, r.receipts, r.err
	}
	ch, ok := e.ready[pivotHash]
	if !ok {
		ch = make(chan struct{})
		e.ready[pivotHash] = ch
	}
	e.mu.Unlock()

	select {
	case <-ch:
		e.mu.Lock()
		r := e.results[pivotHash]
		e.mu.Unlock()
		return r.root, r.receipts, r.err
	case <-ctx.Done():
		return StateRootWithAux{}, "", ctx.Err()
	}
}

// CallVirtual answers a read-only query against the current world state
// without mutating it; since there is no VM to evaluate here, the fake
// returns the transaction payload unchanged and reports the transaction's
// size as gas used.
func (e *FakeExecutor) CallVirtual(tx *types.Transaction, _ Hash) ([]byte, uint64, error) {
	if tx == nil {
		return nil, 0, fmt.Errorf("executor: nil transaction")
	}
	return tx.Payload, uint64(tx.Size()), nil
}

// Stop drains the queue and halts the worker.
func (e *FakeExecutor) Stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *FakeExecutor) computeRootLocked() Hash {
	keys := make([]string, 0, len(e.state))
	for k := range e.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := e.state[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	if buf.Len() == 0 {
		return types.EmptyReceiptsRoot
	}
	return Hash(crypto.Hash(buf.Bytes()))
}

func computeListRoot(ids []string) Hash {
	if len(ids) == 0 {
		return types.EmptyReceiptsRoot
	}
	sort.Strings(ids)
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, id := range ids {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(id)))
		buf.Write(lenBuf[:])
		buf.WriteString(id)
	}
	return Hash(crypto.Hash(buf.Bytes()))
}
