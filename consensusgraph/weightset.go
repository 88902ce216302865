package consensusgraph

// collectOwnEpochWeightSet implements spec §4.2 step 2's backward BFS,
// starting from m's referees (m's parent contributes separately through the
// explicit "+ block_weight(parent)" term in step 3, so it is never a member
// of this set). A visited block is excluded ("in old epoch") once an
// ancestor walk from m's parent upward shows it already appears in some
// earlier-inserted block's own epoch-weight view: min/max_epoch_in_other_
// views bound that walk's starting point and its depth, and sequence_number
// breaks ties when two blocks were inserted at the same height (spec §3's
// data model; this is the "Record min/max_epoch_in_other_views on each
// visited node to bound future walks" instruction of §4.2 step 2).
//
// The result is stored on m as data.blockSetInOwnEpoch/orderedEpochBlocks
// and is never recomputed: if m later becomes a pivot block, spec §4.2 step
// 10 reuses this same set verbatim as m's epoch partition.
func (in *Inner) collectOwnEpochWeightSet(m int) []int {
	mn := &in.arena[m]
	visited := make(map[int]bool, len(mn.referees))
	var queue []int
	for _, r := range mn.referees {
		if !visited[r] {
			visited[r] = true
			queue = append(queue, r)
		}
	}

	var collected []int
	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]

		idxData := &in.arena[index].data
		inOldEpoch := false
		parent := mn.parent
		if parent != null && in.arena[parent].height > uint64(idxData.maxEpochInOtherViews) {
			parent = in.weightTree.AncestorAt(parent, int(idxData.maxEpochInOtherViews))
		}
		for parent != null {
			if in.arena[parent].height < uint64(idxData.minEpochInOtherViews) ||
				idxData.sequenceNumber > in.arena[parent].data.sequenceNumber {
				break
			}
			if parent == index || containsIdx(in.arena[parent].data.blockSetInOwnEpoch, index) {
				inOldEpoch = true
				break
			}
			parent = in.arena[parent].parent
		}

		if inOldEpoch {
			continue
		}
		collected = append(collected, index)

		par := in.arena[index].parent
		if par != null && !visited[par] {
			visited[par] = true
			queue = append(queue, par)
		}
		for _, r := range in.arena[index].referees {
			if !visited[r] {
				visited[r] = true
				queue = append(queue, r)
			}
		}

		if uint64(idxData.minEpochInOtherViews) > mn.height {
			idxData.minEpochInOtherViews = int64(mn.height)
		}
		if uint64(idxData.maxEpochInOtherViews) < mn.height {
			idxData.maxEpochInOtherViews = int64(mn.height)
		}
	}

	mn.data.blockSetInOwnEpoch = collected
	mn.data.orderedEpochBlocks = append(in.topoSort(collected), m)
	return collected
}

func containsIdx(set []int, idx int) bool {
	for _, x := range set {
		if x == idx {
			return true
		}
	}
	return false
}

// eraHeight returns the height of the era boundary at or below
// parentHeight-offset, floored to a multiple of EraEpochCount.
func (in *Inner) eraHeight(parentHeight, offset uint64) uint64 {
	if parentHeight > offset {
		return (parentHeight - offset) / EraEpochCount * EraEpochCount
	}
	return 0
}

// eraBlockWithParent returns the era-genesis ancestor of parent at the era
// boundary offset blocks back from parent's height.
func (in *Inner) eraBlockWithParent(parent int, offset uint64) int {
	height := in.arena[parent].height
	anc := in.weightTree.AncestorAt(parent, int(in.eraHeight(height, offset)))
	if anc < 0 {
		return in.genesisIndex
	}
	return anc
}

// totalWeightInOwnEpoch sums block_weight(x) for x in set, restricted (when
// genesisIdx is not the global genesis) to blocks at or above genesisIdx's
// height whose ancestor-at-that-height is genesisIdx itself — i.e. blocks
// within genesisIdx's era (spec §4.2 step 3's past_era_weight restriction).
func (in *Inner) totalWeightInOwnEpoch(set []int, genesisIdx int) int64 {
	if genesisIdx < 0 {
		genesisIdx = in.genesisIndex
	}
	genHeight := in.arena[genesisIdx].height
	var total int64
	for _, idx := range set {
		if genesisIdx != in.genesisIndex {
			if in.arena[idx].height < genHeight {
				continue
			}
			eraIdx := in.weightTree.AncestorAt(idx, int(genHeight))
			if eraIdx != genesisIdx {
				continue
			}
		}
		total += in.arena[idx].blockWeight()
	}
	return total
}
