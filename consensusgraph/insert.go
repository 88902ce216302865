package consensusgraph

import (
	"github.com/tolelom/ghast/executor"
	"github.com/tolelom/ghast/types"
)

// InsertResult summarizes what InsertBlock did, for the Consensus façade to
// relay as events and scheduling decisions.
type InsertResult struct {
	Accepted       bool
	PartialInvalid bool
	PivotExtended  bool
	ForkAt         int
	NewPivotTip    types.Hash
}

// InsertBlock implements ConsensusInner's insertion algorithm (spec §4.2):
// link the new block into the arena and the six link-cut trees, compute
// its past weight and anticone, run the adaptive-weight test, validate
// parent selection, update the pivot chain, reassign epoch numbers for
// any forked range, refresh confirmation risk, and enqueue the newly
// settled pivot epoch (if any) to exec.
func (in *Inner) InsertBlock(header *types.Header, referees []types.Hash, exec executor.Executor) InsertResult {
	hash := header.Hash()
	if _, ok := in.indices[hash]; ok {
		return InsertResult{Accepted: true, NewPivotTip: in.arena[in.pivotChain[len(in.pivotChain)-1]].hash}
	}

	parentIdx, parentKnown := in.indices[header.ParentHash]
	if !parentKnown {
		return InsertResult{Accepted: false}
	}

	refereeIdx := make([]int, 0, len(referees))
	for _, r := range referees {
		if idx, ok := in.indices[r]; ok {
			refereeIdx = append(refereeIdx, idx)
		}
	}

	m := len(in.arena)
	n := node{
		hash:       hash,
		height:     header.Height,
		difficulty: header.Difficulty,
		isHeavy:    header.IsHeavy(in.cfg.HeavyBlockDifficultyRatio),
		powQuality: header.PowQuality,
		parent:     parentIdx,
		referees:   refereeIdx,
		data: nodeData{
			epochNumber:          -1,
			sequenceNumber:       in.nextSequenceNumber,
			minEpochInOtherViews: int64(header.Height),
			maxEpochInOtherViews: int64(header.Height),
		},
	}
	in.nextSequenceNumber++
	in.arena = append(in.arena, n)
	in.indices[hash] = m

	in.arena[parentIdx].children = append(in.arena[parentIdx].children, m)
	for _, r := range refereeIdx {
		in.arena[r].referrers = append(in.arena[r].referrers, m)
	}
	delete(in.terminals, parentIdx)
	in.terminals[m] = true

	in.weightTree.MakeTree(m)
	in.inclusiveWeightTree.MakeTree(m)
	in.stableWeightTree.MakeTree(m)
	in.stableTree.MakeTree(m)
	in.adaptiveTree.MakeTree(m)
	in.inclusiveAdaptiveTree.MakeTree(m)
	in.weightTree.Link(parentIdx, m)
	in.inclusiveWeightTree.Link(parentIdx, m)
	in.stableWeightTree.Link(parentIdx, m)
	in.stableTree.Link(parentIdx, m)
	in.adaptiveTree.Link(parentIdx, m)
	in.inclusiveAdaptiveTree.Link(parentIdx, m)

	// Step 2: collect m's own-view epoch-weight set (referee-rooted backward
	// BFS), then step 3: past_weight/past_era_weight from it.
	ownSet := in.collectOwnEpochWeightSet(m)
	weightInMyEpoch := in.totalWeightInOwnEpoch(ownSet, -1)
	eraGenesis := in.eraBlockWithParent(parentIdx, 0)
	weightEraInMyEpoch := in.totalWeightInOwnEpoch(ownSet, eraGenesis)

	parentWeight := in.arena[parentIdx].blockWeight()
	in.arena[m].pastWeight = in.arena[parentIdx].pastWeight + parentWeight + weightInMyEpoch
	if parentIdx != eraGenesis {
		in.arena[m].pastEraWeight = in.arena[parentIdx].pastEraWeight + parentWeight + weightEraInMyEpoch
	} else {
		in.arena[m].pastEraWeight = parentWeight + weightEraInMyEpoch
	}

	// update_lcts_initial (spec §4.2 step 5) links m into all six trees with
	// value 0; subtree-sum queries over ancestors deliberately do NOT yet
	// include m's own weight, so the adaptive-weight test below (step 6) and
	// the parent-selection check (step 7) both see the tree state as of
	// m's insertion, before m itself could count toward any subtree.
	anticone := in.computeAnticone(m)
	barrier := in.anticoneBarrier(anticone)

	stable, adaptive := in.computeAdaptiveWeight(m, barrier)
	in.arena[m].stable = stable
	in.arena[m].adaptive = adaptive

	valid := in.checkCorrectParent(m, barrier)
	in.arena[m].data.partialInvalid = !valid

	// update_lcts_finalize (spec §4.2 step 8): propagate m's own weight to
	// every ancestor via path_apply, now that validity is known. A
	// partial-invalid block's weight is zero (spec §7c), so its
	// contribution is skipped entirely rather than applied as zero.
	if valid {
		w := in.arena[m].blockWeight()
		in.weightTree.PathApply(m, w)
		in.inclusiveWeightTree.PathApply(m, w)
		if stable {
			in.stableWeightTree.PathApply(m, w)
		}
		if adaptive {
			in.adaptiveTree.Set(m, -1)
		}
		in.aggregateTotalWeightInPast(w)
	}

	forkAt := in.updatePivotChain(m)
	in.assignEpochNumbers(in.pivotChain[forkAt:], forkAt)

	tipHeight := len(in.pivotChain) - 1
	in.updateConfirmationRisk(tipHeight)

	in.maybeScheduleExecution(exec, tipHeight)

	return InsertResult{
		Accepted:       true,
		PartialInvalid: !valid,
		PivotExtended:  forkAt <= tipHeight,
		ForkAt:         forkAt,
		NewPivotTip:    in.arena[in.pivotChain[tipHeight]].hash,
	}
}

// maybeScheduleExecution enqueues the pivot epoch at tipHeight -
// DeferredStateEpochCount (spec §4.6's deferred execution delay), once
// that epoch exists and has an assigned ordered block set.
func (in *Inner) maybeScheduleExecution(exec executor.Executor, tipHeight int) {
	if exec == nil {
		return
	}
	execHeight := tipHeight - DeferredStateEpochCount
	if execHeight < 0 || execHeight >= len(in.pivotChain) {
		return
	}
	pivotIdx := in.pivotChain[execHeight]
	ordered := in.arena[pivotIdx].data.orderedEpochBlocks
	if ordered == nil {
		return
	}
	hashes := make([]types.Hash, len(ordered))
	for i, idx := range ordered {
		hashes[i] = in.arena[idx].hash
	}
	exec.EnqueueEpoch(executor.EpochExecutionTask{
		PivotHash:          in.arena[pivotIdx].hash,
		OrderedEpochHashes: hashes,
		RewardInfo:         in.computeRewardInfo(execHeight),
		OnLocalPivot:       true,
	})
}
