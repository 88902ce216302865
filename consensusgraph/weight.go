package consensusgraph

import (
	"sort"

	"github.com/tolelom/ghast/linkcut"
)

// isHeavier implements spec §3's pivot tie-break: is_heavier((w,h)) :=
// w > w' or (w == w' and h > h'), compared as hashes lexicographically
// since height ties within a fork are resolved by the deterministic
// "larger hash wins" rule (spec §4.2 step 9).
func isHeavier(w1 int64, h1 string, w2 int64, h2 string) bool {
	if w1 != w2 {
		return w1 > w2
	}
	return h1 > h2
}

// subtreeWeight returns Sum(block_weight(y)) for y in subtree(x) of the
// parent tree, maintained by every insertion's path_apply onto the weight
// tree (spec §3's link-cut-tree invariant).
func (in *Inner) subtreeWeight(x int) int64 { return in.weightTree.Get(x) }

func (in *Inner) subtreeInclusiveWeight(x int) int64 { return in.inclusiveWeightTree.Get(x) }

func (in *Inner) subtreeStableWeight(x int) int64 { return in.stableWeightTree.Get(x) }

// withoutBarrier temporarily removes barrier blocks' subtree contribution
// from tree (every barrier node's current Get() value is exactly what
// flowed into each of its ancestors, by the subtree-sum invariant), runs
// fn, then restores it. Barrier nodes are processed in ascending height
// order so nested removals see consistent values.
func withoutBarrier(tree *linkcut.Tree, barrier []int, fn func()) {
	saved := make([]int64, len(barrier))
	for i, b := range barrier {
		v := tree.Get(b)
		saved[i] = v
		tree.PathApply(b, -v)
	}
	fn()
	for i := len(barrier) - 1; i >= 0; i-- {
		tree.PathApply(barrier[i], saved[i])
	}
}

func (in *Inner) sortedBarrier(barrier map[int]bool) []int {
	out := make([]int, 0, len(barrier))
	for idx := range barrier {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return in.arena[out[i]].height < in.arena[out[j]].height })
	return out
}

// withoutAnticoneBarrier runs fn with every barrier block's contribution
// temporarily subtracted from all six trees (spec §4.3: "their
// contributions must be temporarily subtracted from all six trees before
// the queries and re-added afterward").
func (in *Inner) withoutAnticoneBarrier(barrierSet map[int]bool, fn func()) {
	if len(barrierSet) == 0 {
		fn()
		return
	}
	barrier := in.sortedBarrier(barrierSet)
	withoutBarrier(in.weightTree, barrier, func() {
		withoutBarrier(in.inclusiveWeightTree, barrier, func() {
			withoutBarrier(in.stableWeightTree, barrier, func() {
				withoutBarrier(in.stableTree, barrier, func() {
					withoutBarrier(in.adaptiveTree, barrier, func() {
						withoutBarrier(in.inclusiveAdaptiveTree, barrier, fn)
					})
				})
			})
		})
	})
}

// computeAdaptiveWeight implements spec §4.3's stable/adaptive test.
// f(x) = PastW(m) - PastW(parent(x)) - weight(parent(x))
// g(x) = SubtreeWeight(B, x)
// A block is unstable iff some ancestor x has f(x) > beta*d and
// g(x)/f(x) < alpha (equivalently alpha_den*g(x) < alpha_num*f(x)).
// Adaptive additionally requires an ancestor whose SubtreeWeight(parent(x))
// exceeds beta*d with a low SubtreeStableWeight ratio.
func (in *Inner) computeAdaptiveWeight(m int, barrier map[int]bool) (stable, adaptive bool) {
	mn := &in.arena[m]
	d := int64(mn.difficulty)
	alphaNum := in.cfg.AdaptiveWeightAlphaNum
	alphaDen := in.cfg.AdaptiveWeightAlphaDen
	beta := in.cfg.AdaptiveWeightBeta
	if beta == 0 {
		beta = 1000
	}
	if alphaDen == 0 {
		alphaDen = 3
	}
	if alphaNum == 0 {
		alphaNum = 2
	}
	threshold := beta * d

	in.withoutAnticoneBarrier(barrier, func() {
		stable = !in.existsUnstableWitness(m, threshold, alphaNum, alphaDen)
		if !stable {
			adaptive = in.existsAdaptiveWitness(m, threshold, alphaNum, alphaDen)
		}
	})
	return stable, adaptive
}

// existsUnstableWitness walks the ancestor chain from parent(m) up to the
// era genesis looking for x with f(x) > threshold and alpha_den*g(x) <
// alpha_num*f(x), reading g(x) as x's weight-tree subtree sum at each step;
// no path_aggregate query is used.
func (in *Inner) existsUnstableWitness(m int, threshold, alphaNum, alphaDen int64) bool {
	parent := in.arena[m].parent
	if parent == null {
		return false
	}
	pastWeightM := in.arena[m].pastWeight
	x := parent
	for x != null && x != in.eraGenesisOf(m) {
		px := in.arena[x].parent
		if px == null {
			break
		}
		f := pastWeightM - in.arena[px].pastWeight - in.arena[px].blockWeight()
		if f > threshold {
			g := in.subtreeWeight(x)
			if alphaDen*g < alphaNum*f {
				return true
			}
		}
		x = px
	}
	return false
}

// existsAdaptiveWitness mirrors existsUnstableWitness using
// SubtreeWeight(parent(x)) and SubtreeStableWeight(x); checked within the
// current era, then (if still not adaptive) with inclusive weights over the
// previous era, per spec §4.3.
func (in *Inner) existsAdaptiveWitness(m int, threshold, alphaNum, alphaDen int64) bool {
	parent := in.arena[m].parent
	x := parent
	for x != null && x != in.eraGenesisOf(m) {
		px := in.arena[x].parent
		if px == null {
			break
		}
		gw := in.subtreeWeight(px)
		if gw > threshold {
			sw := in.subtreeStableWeight(x)
			if alphaDen*sw < alphaNum*gw {
				return true
			}
		}
		x = px
	}
	// previous-era fallback using inclusive weights: once an era has
	// settled, every block in it is treated as stable for this purpose (spec
	// §4.3), so the inclusive subtree weight itself stands in for the
	// stable-weight term rather than filtering by the (no longer tracked)
	// stable flag.
	x = parent
	for x != null {
		px := in.arena[x].parent
		if px == null {
			break
		}
		gw := in.subtreeInclusiveWeight(px)
		if gw > threshold {
			sw := in.subtreeInclusiveWeight(x)
			if alphaDen*sw < alphaNum*gw {
				return true
			}
		}
		x = px
	}
	return false
}

// eraGenesisOf returns the era genesis for the era containing m (spec
// §4.3's "era-genesis of m's parent"); era reclamation is not implemented
// (spec §3 lifecycle note), so this is simply the global genesis unless m's
// height has crossed an era boundary, in which case it is the ancestor at
// the era's starting height.
func (in *Inner) eraGenesisOf(m int) int {
	height := in.arena[m].height
	eraStart := (height / EraEpochCount) * EraEpochCount
	if eraStart == 0 {
		return in.genesisIndex
	}
	anc := in.weightTree.AncestorAt(m, int(eraStart))
	if anc < 0 {
		return in.genesisIndex
	}
	return anc
}
