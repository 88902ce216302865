package consensusgraph

// updatePivotChain implements spec §4.2 step 9: find the LCA of the
// current pivot tip and the newly inserted block m, truncate the pivot
// chain back to the LCA, then repeatedly descend to the heaviest child
// (is_heavier tie-break) until a terminal is reached. Returns the height
// at which the chain diverged, for assignEpochNumbers/clearEpochNumbers.
func (in *Inner) updatePivotChain(m int) (forkAt int) {
	tip := in.pivotChain[len(in.pivotChain)-1]
	lca := in.lca(tip, m)

	forkAt = in.heightOfPivot(lca) + 1
	in.clearEpochNumbers(forkAt)
	in.pivotChain = in.pivotChain[:forkAt]
	in.pivotChainMetadata = in.pivotChainMetadata[:forkAt]

	cur := lca
	for {
		best := in.heaviestChild(cur)
		if best == null {
			break
		}
		cur = best
		in.pivotChain = append(in.pivotChain, cur)
		in.arena[cur].lastPivotInPast = uint64(len(in.pivotChain) - 1)
		in.pivotChainMetadata = append(in.pivotChainMetadata, pivotMetadata{
			hash:                  in.arena[cur].hash,
			lastPivotInPastBlocks: map[int]bool{cur: true},
		})
	}
	return forkAt
}

func (in *Inner) heightOfPivot(idx int) int {
	for h, p := range in.pivotChain {
		if p == idx {
			return h
		}
	}
	return 0
}

// heaviestChild picks the child of cur with the greatest subtree weight,
// ties broken by is_heavier's hash comparison; returns null if cur is a
// terminal.
func (in *Inner) heaviestChild(cur int) int {
	best := null
	var bestWeight int64
	var bestHash string
	for _, c := range in.arena[cur].children {
		w := in.subtreeWeight(c)
		h := string(in.arena[c].hash)
		if best == null || isHeavier(w, h, bestWeight, bestHash) {
			best = c
			bestWeight = w
			bestHash = h
		}
	}
	return best
}

// lca returns the lowest common ancestor of u and v in the parent tree,
// using the weight tree's splay structure (any of the six trees share the
// same underlying parent-pointer forest).
func (in *Inner) lca(u, v int) int {
	if u == v {
		return u
	}
	return in.weightTree.LCA(u, v)
}

// checkCorrectParent implements spec §4.4's parent-selection validity
// check: for every block x in m's own epoch set (step 2's
// blockSetInOwnEpoch) that is not partial_invalid, the LCA of x and
// parent(m) must not be parent(m) itself (m should have forked off earlier
// to include x), and at the child-of-LCA level, the branch containing
// parent(m) must be is_heavier than the branch containing x (subtree
// weights, with m's own anticone barrier temporarily excluded — m has not
// been path_applied into the trees yet at this point in insertion, so no
// further subtraction is needed for m itself).
func (in *Inner) checkCorrectParent(m int, barrier map[int]bool) bool {
	parent := in.arena[m].parent
	if parent == null {
		return true
	}
	parentHeight := in.arena[parent].height
	eraHeight := in.eraHeight(parentHeight, 0)

	valid := true
	in.withoutAnticoneBarrier(barrier, func() {
		for _, x := range in.arena[m].data.blockSetInOwnEpoch {
			if in.arena[x].data.partialInvalid {
				continue
			}
			lca := in.lca(x, parent)
			if in.arena[lca].height < eraHeight {
				continue
			}
			if lca == parent {
				valid = false
				return
			}
			lcaHeight := in.arena[lca].height
			fork := in.weightTree.AncestorAt(x, int(lcaHeight)+1)
			pivot := in.weightTree.AncestorAt(parent, int(lcaHeight)+1)
			if fork < 0 || pivot < 0 {
				continue
			}
			forkWeight := in.subtreeWeight(fork)
			pivotWeight := in.subtreeWeight(pivot)
			if isHeavier(forkWeight, string(in.arena[fork].hash), pivotWeight, string(in.arena[pivot].hash)) {
				valid = false
				return
			}
		}
	})
	return valid
}
