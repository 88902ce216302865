// Package linkcut implements a splay-tree-based link-cut forest: a dynamic
// tree supporting path aggregation and path update in amortized O(log n).
// ConsensusInner keeps six instances of Tree, one per weighted quantity
// (weight, inclusive weight, stable weight, stable, adaptive, inclusive
// adaptive), mirroring the parent relation of the consensus arena — see
// spec.md §3 "Link-Cut Tree" and §9's arena-plus-indices design note.
//
// The forest never needs to re-root (every access is a root-to-node path
// query against the fixed consensus genesis), so no "evert"/reverse
// operation is implemented; Cut is provided for structural completeness
// even though ConsensusInner's parent tree only ever grows.
package linkcut

// null is the NULL sentinel for arena indices, per spec §9 ("NULL = !0").
// -1 is used instead of Rust's `!0` (usize max) since Go indices are signed.
const null = -1

type node struct {
	ch  [2]int // splay-tree children (preferred-path structure)
	fa  int    // splay parent, or "path parent" when this node roots an aux tree
	val int64  // this node's own scalar value
	mn  int64  // min of val over this node's splay subtree
	add int64  // pending additive lazy, to be pushed to splay children
	sz  int    // size of this node's splay subtree (for ancestor-at-height)
}

// Tree is one arena-backed link-cut forest.
type Tree struct {
	nodes []node
}

// NewTree returns an empty link-cut forest.
func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) ensure(idx int) {
	for len(t.nodes) <= idx {
		t.nodes = append(t.nodes, node{ch: [2]int{null, null}, fa: null, sz: 1})
	}
}

// MakeTree allocates arena slot idx as an isolated single-node tree with
// value 0. The consensus arena and this forest share the same index space,
// so idx is typically len(nodes) at call time but any non-negative index is
// accepted.
func (t *Tree) MakeTree(idx int) {
	t.ensure(idx)
	t.nodes[idx] = node{ch: [2]int{null, null}, fa: null, val: 0, mn: 0, sz: 1}
}

func (t *Tree) isRoot(x int) bool {
	f := t.nodes[x].fa
	if f == null {
		return true
	}
	return t.nodes[f].ch[0] != x && t.nodes[f].ch[1] != x
}

func (t *Tree) pushUp(x int) {
	n := &t.nodes[x]
	n.mn = n.val
	n.sz = 1
	if n.ch[0] != null {
		if t.nodes[n.ch[0]].mn < n.mn {
			n.mn = t.nodes[n.ch[0]].mn
		}
		n.sz += t.nodes[n.ch[0]].sz
	}
	if n.ch[1] != null {
		if t.nodes[n.ch[1]].mn < n.mn {
			n.mn = t.nodes[n.ch[1]].mn
		}
		n.sz += t.nodes[n.ch[1]].sz
	}
}

// applyAdd adds delta to the value of every node in x's splay subtree.
// Adding a constant to every element of a set shifts its minimum by the
// same constant, so mn can be updated directly without visiting children.
func (t *Tree) applyAdd(x int, delta int64) {
	if x == null {
		return
	}
	n := &t.nodes[x]
	n.val += delta
	n.mn += delta
	n.add += delta
}

func (t *Tree) pushDown(x int) {
	n := &t.nodes[x]
	if n.add == 0 {
		return
	}
	if n.ch[0] != null {
		t.applyAdd(n.ch[0], n.add)
	}
	if n.ch[1] != null {
		t.applyAdd(n.ch[1], n.add)
	}
	n.add = 0
}

// pushAll pushes down every pending lazy add from the splay-tree root down
// to x, so that rotations below see consistent values.
func (t *Tree) pushAll(x int) {
	if !t.isRoot(x) {
		t.pushAll(t.nodes[x].fa)
	}
	t.pushDown(x)
}

func (t *Tree) rotate(x int) {
	y := t.nodes[x].fa
	z := t.nodes[y].fa
	k := 0
	if t.nodes[y].ch[1] == x {
		k = 1
	}
	if !t.isRoot(y) {
		if t.nodes[z].ch[0] == y {
			t.nodes[z].ch[0] = x
		} else {
			t.nodes[z].ch[1] = x
		}
	}
	t.nodes[x].fa = z
	t.nodes[y].ch[k] = t.nodes[x].ch[k^1]
	if t.nodes[x].ch[k^1] != null {
		t.nodes[t.nodes[x].ch[k^1]].fa = y
	}
	t.nodes[x].ch[k^1] = y
	t.nodes[y].fa = x
	t.pushUp(y)
	t.pushUp(x)
}

func (t *Tree) splay(x int) {
	t.pushAll(x)
	for !t.isRoot(x) {
		y := t.nodes[x].fa
		z := t.nodes[y].fa
		if !t.isRoot(y) {
			yIsLeft := t.nodes[y].ch[0] == x
			zIsLeft := t.nodes[z].ch[0] == y
			if yIsLeft == zIsLeft {
				t.rotate(y)
			} else {
				t.rotate(x)
			}
		}
		t.rotate(x)
	}
}

// access makes the root-to-x path the preferred path, splays x to the root
// of the resulting auxiliary tree, and returns the last real node visited
// (the topmost node of the underlying tree reached along the way — used by
// LCA).
func (t *Tree) access(x int) int {
	last := null
	for y := x; y != null; y = t.nodes[y].fa {
		t.splay(y)
		t.nodes[y].ch[1] = last
		t.pushUp(y)
		last = y
	}
	t.splay(x)
	return last
}

// Link attaches child as a new leaf under parent. parent must already be a
// node in the forest (or null for a fresh root, matching genesis).
func (t *Tree) Link(parent, child int) {
	if parent == null {
		return
	}
	t.access(child)
	t.access(parent)
	t.nodes[child].fa = parent
}

// Cut detaches x from its parent, splitting the forest at x. Provided for
// structural completeness; ConsensusInner's parent tree only ever grows, so
// nothing in this codebase calls it.
func (t *Tree) Cut(x int) {
	t.access(x)
	if t.nodes[x].ch[0] != null {
		t.nodes[t.nodes[x].ch[0]].fa = null
		t.nodes[x].ch[0] = null
		t.pushUp(x)
	}
}

// Set overwrites x's own value (not a path update).
func (t *Tree) Set(x int, v int64) {
	t.access(x)
	t.nodes[x].val = v
	t.pushUp(x)
}

// Get returns x's own current value.
func (t *Tree) Get(x int) int64 {
	t.access(x)
	return t.nodes[x].val
}

// PathApply adds delta to every node on the root-to-x path, inclusive of x.
func (t *Tree) PathApply(x int, delta int64) {
	r := t.access(x)
	_ = r
	t.applyAdd(x, delta)
}

// PathAggregate returns the minimum value over every node on the root-to-x
// path, inclusive of x.
func (t *Tree) PathAggregate(x int) int64 {
	t.access(x)
	return t.nodes[x].mn
}

// CaterpillarApply adds delta to the tree-parent of every node on the
// root-to-x path (spec §3's "caterpillar" operation). After access(x), x's
// left splay child is exactly the rest of the path (root..parent(x)), since
// x is the deepest node in path order; applying delta to that subtree
// alone, leaving x untouched, implements the operation in one step.
func (t *Tree) CaterpillarApply(x int, delta int64) {
	t.access(x)
	left := t.nodes[x].ch[0]
	if left != null {
		t.applyAdd(left, delta)
		t.pushUp(x)
	}
}

// AncestorAt returns the index of the ancestor of x at the given height
// (depth from the forest's root, root itself being height 0), or null if
// x's path is shorter than height+1.
func (t *Tree) AncestorAt(x int, height int) int {
	t.access(x)
	if height < 0 || height >= t.nodes[x].sz {
		return null
	}
	return t.selectKth(x, height+1)
}

// selectKth returns the k-th node (1-indexed) in in-order position within
// root's splay subtree; in-order position corresponds to path depth order.
func (t *Tree) selectKth(root, k int) int {
	for {
		t.pushDown(root)
		ls := 0
		if t.nodes[root].ch[0] != null {
			ls = t.nodes[t.nodes[root].ch[0]].sz
		}
		switch {
		case k == ls+1:
			t.splay(root)
			return root
		case k <= ls:
			root = t.nodes[root].ch[0]
		default:
			k -= ls + 1
			root = t.nodes[root].ch[1]
		}
	}
}

// LCA returns the lowest common ancestor of u and v in the underlying
// rooted forest.
func (t *Tree) LCA(u, v int) int {
	t.access(u)
	return t.access(v)
}
