package executor

import (
	"context"
	"testing"
	"time"

	"github.com/tolelom/ghast/events"
)

func TestFakeExecutorEnqueueThenWaitForResult(t *testing.T) {
	e := NewFakeExecutor(events.NewEmitter())
	defer e.Stop()

	task := EpochExecutionTask{
		PivotHash:          "pivot-1",
		OrderedEpochHashes: []Hash{"a", "b", "c"},
	}
	e.EnqueueEpoch(task)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	root, receipts, err := e.WaitForResult(ctx, task.PivotHash)
	if err != nil {
		t.Fatalf("WaitForResult error: %v", err)
	}
	if root.StateRoot == "" {
		t.Errorf("expected a non-empty state root")
	}
	if receipts == "" {
		t.Errorf("expected a non-empty receipts root")
	}
}

func TestFakeExecutorComputeEpochIsDeterministic(t *testing.T) {
	e := NewFakeExecutor(nil)
	defer e.Stop()

	task := EpochExecutionTask{
		PivotHash:          "pivot-2",
		OrderedEpochHashes: []Hash{"x", "y"},
	}

	root1, receipts1, err := e.ComputeEpoch(context.Background(), task)
	if err != nil {
		t.Fatalf("ComputeEpoch error: %v", err)
	}
	root2, receipts2, err := e.ComputeEpoch(context.Background(), task)
	if err != nil {
		t.Fatalf("ComputeEpoch error: %v", err)
	}
	if root1.StateRoot != root2.StateRoot {
		t.Errorf("state root not deterministic: %s != %s", root1.StateRoot, root2.StateRoot)
	}
	if receipts1 != receipts2 {
		t.Errorf("receipts root not deterministic: %s != %s", receipts1, receipts2)
	}
}

func TestFakeExecutorWaitForResultContextTimeout(t *testing.T) {
	e := NewFakeExecutor(nil)
	defer e.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := e.WaitForResult(ctx, "never-enqueued")
	if err == nil {
		t.Errorf("expected a context-deadline error for a pivot that is never enqueued")
	}
}
