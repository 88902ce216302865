package linkcut

import "testing"

// buildChain links 0 <- 1 <- 2 <- ... <- n-1 (0 is the tree root).
func buildChain(t *Tree, n int) {
	for i := 0; i < n; i++ {
		t.MakeTree(i)
	}
	for i := 1; i < n; i++ {
		t.Link(i-1, i)
	}
}

func TestPathApplyAccumulatesAlongChain(t *testing.T) {
	tr := NewTree()
	buildChain(tr, 5)

	tr.PathApply(4, 10) // adds 10 to nodes 0..4
	tr.PathApply(2, 5)  // adds 5 to nodes 0..2

	want := map[int]int64{0: 15, 1: 15, 2: 15, 3: 10, 4: 10}
	for idx, w := range want {
		if got := tr.Get(idx); got != w {
			t.Errorf("Get(%d) = %d, want %d", idx, got, w)
		}
	}
}

func TestPathAggregateMin(t *testing.T) {
	tr := NewTree()
	buildChain(tr, 4)

	tr.Set(0, 5)
	tr.Set(1, 2)
	tr.Set(2, 8)
	tr.Set(3, 1)

	if got := tr.PathAggregate(2); got != 2 {
		t.Errorf("PathAggregate(2) = %d, want 2 (min of 5,2,8)", got)
	}
	if got := tr.PathAggregate(3); got != 1 {
		t.Errorf("PathAggregate(3) = %d, want 1", got)
	}
}

func TestAncestorAt(t *testing.T) {
	tr := NewTree()
	buildChain(tr, 6)

	for height := 0; height < 6; height++ {
		if got := tr.AncestorAt(5, height); got != height {
			t.Errorf("AncestorAt(5, %d) = %d, want %d", height, got, height)
		}
	}
	if got := tr.AncestorAt(5, 6); got != null {
		t.Errorf("AncestorAt(5, 6) = %d, want null (out of range)", got)
	}
}

func TestLCABranching(t *testing.T) {
	tr := NewTree()
	// 0 -> 1 -> 2 (left branch continues to 3)
	//        \-> 4 (right branch continues to 5)
	for i := 0; i < 6; i++ {
		tr.MakeTree(i)
	}
	tr.Link(0, 1)
	tr.Link(1, 2)
	tr.Link(2, 3)
	tr.Link(1, 4)
	tr.Link(4, 5)

	if got := tr.LCA(3, 5); got != 1 {
		t.Errorf("LCA(3, 5) = %d, want 1", got)
	}
	if got := tr.LCA(3, 2); got != 2 {
		t.Errorf("LCA(3, 2) = %d, want 2", got)
	}
	if got := tr.LCA(0, 5); got != 0 {
		t.Errorf("LCA(0, 5) = %d, want 0", got)
	}
}

func TestCaterpillarApplyAffectsParentsNotSelf(t *testing.T) {
	tr := NewTree()
	buildChain(tr, 4) // 0 <- 1 <- 2 <- 3

	tr.CaterpillarApply(3, 7) // adds 7 to parents of every node on root..3, i.e. nodes 0,1,2

	want := map[int]int64{0: 7, 1: 7, 2: 7, 3: 0}
	for idx, w := range want {
		if got := tr.Get(idx); got != w {
			t.Errorf("Get(%d) = %d, want %d", idx, got, w)
		}
	}
}

func TestCutDetachesSubtree(t *testing.T) {
	tr := NewTree()
	buildChain(tr, 4)

	tr.Cut(2) // detaches {2,3} from {0,1}

	if got := tr.LCA(0, 1); got != 0 {
		t.Errorf("LCA(0,1) after cut = %d, want 0", got)
	}
	if got := tr.AncestorAt(3, 0); got != 2 {
		t.Errorf("AncestorAt(3, 0) after cut = %d, want 2 (new root of its own tree)", got)
	}
}
