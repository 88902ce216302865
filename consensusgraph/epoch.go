package consensusgraph

// topoSort orders blockSet by (parent edges, referee edges) dependency,
// ties broken by hash so the order is deterministic across nodes (spec
// §4.2 step 2's "a deterministic topological order").
func (in *Inner) topoSort(blockSet []int) []int {
	inSet := make(map[int]bool, len(blockSet))
	for _, idx := range blockSet {
		inSet[idx] = true
	}
	indegree := make(map[int]int, len(blockSet))
	children := make(map[int][]int, len(blockSet))
	for _, idx := range blockSet {
		indegree[idx] = 0
	}
	for _, idx := range blockSet {
		n := &in.arena[idx]
		deps := make([]int, 0, 1+len(n.referees))
		if n.parent != null && inSet[n.parent] {
			deps = append(deps, n.parent)
		}
		for _, r := range n.referees {
			if inSet[r] {
				deps = append(deps, r)
			}
		}
		for _, d := range deps {
			children[d] = append(children[d], idx)
			indegree[idx]++
		}
	}

	var ready []int
	for _, idx := range blockSet {
		if indegree[idx] == 0 {
			ready = append(ready, idx)
		}
	}

	var out []int
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if in.arena[ready[i]].hash < in.arena[ready[best]].hash {
				best = i
			}
		}
		cur := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, cur)
		for _, c := range children[cur] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	return out
}

// assignEpochNumbers implements spec §4.2 step 10: for each pivot position
// from forkAt to the new tip, reuse the epoch set each pivot block already
// computed at its own insertion time (step 2's blockSetInOwnEpoch) and
// stamp epoch_number = h onto every member still unassigned. forkAt is the
// absolute pivot-chain height of pivotChain[0].
func (in *Inner) assignEpochNumbers(pivotChain []int, forkAt int) {
	for i, idx := range pivotChain {
		h := forkAt + i
		n := &in.arena[idx]
		if n.data.epochNumber >= 0 {
			continue
		}
		n.data.epochNumber = int64(h)
		for _, b := range n.data.blockSetInOwnEpoch {
			if in.arena[b].data.epochNumber < 0 {
				in.arena[b].data.epochNumber = int64(h)
			}
		}
	}
}

// clearEpochNumbers implements the fork-out half of spec §4.2 step 11: any
// block whose epoch was assigned via a pivot height that no longer holds
// that block's pivot ancestor has its epoch_number reset to NULL so it is
// reassigned on the next pivot update. blockSetInOwnEpoch/orderedEpochBlocks
// are untouched — they are fixed at insertion and outlive pivot membership.
func (in *Inner) clearEpochNumbers(from int) {
	for h := from; h < len(in.pivotChain); h++ {
		idx := in.pivotChain[h]
		in.arena[idx].data.epochNumber = -1
		for _, b := range in.arena[idx].data.blockSetInOwnEpoch {
			in.arena[b].data.epochNumber = -1
		}
	}
}
