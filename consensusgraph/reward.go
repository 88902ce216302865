package consensusgraph

import "github.com/tolelom/ghast/executor"

// computeRewardInfo implements spec §4.6 / §4.2 step 12's reward-execution
// input: for the epoch pivoted at execHeight, every epoch block's
// anticone_difficulty and anticone_overlimited flag, once the cutoff epoch
// AnticonePenaltyUpperEpochCount further down the pivot chain has itself
// settled. Returns nil if that cutoff epoch doesn't exist yet.
func (in *Inner) computeRewardInfo(execHeight int) []executor.RewardInfo {
	cutoffHeight := execHeight + AnticonePenaltyUpperEpochCount
	if cutoffHeight >= len(in.pivotChain) {
		return nil
	}
	pivotIdx := in.pivotChain[execHeight]
	cutoffIdx := in.pivotChain[cutoffHeight]
	ordered := in.arena[pivotIdx].data.orderedEpochBlocks
	if ordered == nil {
		return nil
	}

	epochDifficulty := int64(in.arena[pivotIdx].difficulty)
	out := make([]executor.RewardInfo, 0, len(ordered))
	for _, idx := range ordered {
		overlimited := in.arena[idx].data.partialInvalid
		var difficulty int64
		// A partial-invalid block earns no reward, so its anticone
		// difficulty is never consulted; leaving it at zero matches the
		// original's own "won't be used" shortcut.
		if !overlimited {
			difficulty = in.anticoneDifficulty(idx, cutoffIdx)
			if epochDifficulty > 0 && difficulty/epochDifficulty >= AnticonePenaltyRatio {
				overlimited = true
			}
		}
		out = append(out, executor.RewardInfo{
			BlockHash:           in.arena[idx].hash,
			AnticoneOverlimited: overlimited,
			AnticoneDifficulty:  uint64(difficulty),
		})
	}
	return out
}

// anticoneDifficulty sums block_weight over every block in me's anticone
// that is not already accounted for by the cutoff epoch's anticone (spec
// §4.2 step 12's testable property #6), preferring the cached anticone sets
// populated at insertion and falling back to recomputeAnticoneWeight once
// either side has aged out of the cache.
func (in *Inner) anticoneDifficulty(me, cutoffIdx int) int64 {
	meAnticone, ok1 := in.anticone.get(me)
	cutoffAnticone, ok2 := in.anticone.get(cutoffIdx)
	if !ok1 || !ok2 {
		return in.recomputeAnticoneWeight(me, cutoffIdx)
	}
	var total int64
	for a := range meAnticone {
		if !cutoffAnticone[a] {
			total += in.arena[a].blockWeight()
		}
	}
	return total
}

// recomputeAnticoneWeight rebuilds me's anticone difficulty as seen from the
// cutoff epoch without consulting the cache: first the backward closure from
// cutoffIdx restricted to blocks whose epoch is still open relative to me's
// last_pivot_in_past (me's anticone candidate universe), then the forward
// closure from me restricted to that set (me's visible future within it);
// the difference between the cutoff epoch's past weight and me's own past
// weight, minus that future's weight, is exactly the anticone weight.
func (in *Inner) recomputeAnticoneWeight(me, cutoffIdx int) int64 {
	lastPivot := in.arena[me].lastPivotInPast

	visited := map[int]bool{cutoffIdx: true}
	queue := []int{cutoffIdx}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		parent := in.arena[idx].parent
		if parent != null && in.epochExceeds(parent, lastPivot) && !visited[parent] {
			visited[parent] = true
			queue = append(queue, parent)
		}
		for _, r := range in.arena[idx].referees {
			if in.epochExceeds(r, lastPivot) && !visited[r] {
				visited[r] = true
				queue = append(queue, r)
			}
		}
	}

	visited2 := map[int]bool{me: true}
	queue = []int{me}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, c := range in.arena[idx].children {
			if visited[c] && !visited2[c] {
				visited2[c] = true
				queue = append(queue, c)
			}
		}
		for _, r := range in.arena[idx].referrers {
			if visited[r] && !visited2[r] {
				visited2[r] = true
				queue = append(queue, r)
			}
		}
	}

	total := in.arena[cutoffIdx].pastWeight - in.arena[me].pastWeight + in.arena[cutoffIdx].blockWeight()
	for idx := range visited2 {
		total -= in.arena[idx].blockWeight()
	}
	return total
}
