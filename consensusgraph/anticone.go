package consensusgraph

// anticoneCacheMaxAge bounds how many insertions an anticone cache entry
// survives before eviction (spec §3: "Eviction is by age").
const anticoneCacheMaxAge = 100000

type anticoneEntry struct {
	set      map[int]bool
	insertedAt uint64
}

// anticoneCache is a bounded mapping from block index to that block's
// anticone set, evicted by age, falling back to brute-force recomputation
// on miss (spec §3's AnticoneCache, §4.2 step 4).
type anticoneCache struct {
	entries map[int]anticoneEntry
}

func newAnticoneCache() *anticoneCache {
	return &anticoneCache{entries: make(map[int]anticoneEntry)}
}

func (c *anticoneCache) get(idx int) (map[int]bool, bool) {
	e, ok := c.entries[idx]
	if !ok {
		return nil, false
	}
	return e.set, true
}

func (c *anticoneCache) put(idx int, set map[int]bool, now uint64) {
	c.entries[idx] = anticoneEntry{set: set, insertedAt: now}
	c.evict(now)
}

func (c *anticoneCache) evict(now uint64) {
	for idx, e := range c.entries {
		if now-e.insertedAt > anticoneCacheMaxAge {
			delete(c.entries, idx)
		}
	}
}

// lastPivotInPastBound returns the maximum last_pivot_in_past among m's
// parent and referees: every pivot height at or below this one is already
// finalized, so blocks whose epoch falls there can never be in m's anticone
// (spec §4.2 step 4 / original compute_anticone_bruteforce).
func (in *Inner) lastPivotInPastBound(m int) uint64 {
	bound := in.arena[in.arena[m].parent].lastPivotInPast
	for _, r := range in.arena[m].referees {
		if rp := in.arena[r].lastPivotInPast; rp > bound {
			bound = rp
		}
	}
	return bound
}

// epochExceeds reports whether idx's epoch is still open relative to bound:
// either unassigned (epoch_number -1, this module's NULL sentinel, treated
// as unbounded to match the original NULL=usize::MAX convention) or assigned
// to a pivot height above bound.
func (in *Inner) epochExceeds(idx int, bound uint64) bool {
	e := in.arena[idx].data.epochNumber
	return e < 0 || e > int64(bound)
}

// recentPastBelow walks backward from m through parent/referee edges,
// stopping at any node whose epoch has already settled at or below bound,
// mirroring compute_anticone_bruteforce's restricted backward BFS.
func (in *Inner) recentPastBelow(m int, bound uint64) map[int]bool {
	visited := map[int]bool{m: true}
	queue := []int{m}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		p := in.arena[cur].parent
		if p != null && in.epochExceeds(p, bound) && !visited[p] {
			visited[p] = true
			queue = append(queue, p)
		}
		for _, r := range in.arena[cur].referees {
			if in.epochExceeds(r, bound) && !visited[r] {
				visited[r] = true
				queue = append(queue, r)
			}
		}
	}
	return visited
}

// computeAnticone implements spec §4.2 step 4 and the GLOSSARY's definition
// of anticone(x) = all ∖ (past(x) ∪ future(x) ∪ {x}): if parent's anticone
// is cached, derive m's anticone as parent_anticone + parent_futures - m's
// past; otherwise brute-force the candidate universe as every block whose
// epoch is still open relative to last_pivot_in_past(m), then subtract
// (rather than add) what's reachable backward from m. A freshly inserted m
// has no children or referrers yet, so its future is empty and only the
// past-cone subtraction is needed here.
func (in *Inner) computeAnticone(m int) map[int]bool {
	parent := in.arena[m].parent
	if parent == null {
		return map[int]bool{}
	}

	lastInPivot := in.lastPivotInPastBound(m)
	in.arena[m].lastPivotInPast = lastInPivot

	if parentAnticone, ok := in.anticone.get(parent); ok {
		result := make(map[int]bool, len(parentAnticone))
		for idx := range parentAnticone {
			result[idx] = true
		}
		// parent_futures: every block reachable forward from parent through
		// child and referrer edges, other than m; those not in m's own past
		// are in m's anticone.
		myPast := in.pastCone(m)
		seen := map[int]bool{parent: true, m: true}
		for queue := []int{parent}; len(queue) > 0; queue = queue[1:] {
			cur := queue[0]
			for _, c := range append(append([]int(nil), in.arena[cur].children...), in.arena[cur].referrers...) {
				if !seen[c] {
					seen[c] = true
					queue = append(queue, c)
					if !myPast[c] {
						result[c] = true
					}
				}
			}
		}
		for idx := range myPast {
			delete(result, idx)
		}
		delete(result, m)
		in.anticone.put(m, result, in.nextSequenceNumber)
		return result
	}

	// Brute force: candidate universe is every block whose epoch is still
	// open below lastInPivot, minus m's own recent past (its future is
	// empty since m was just inserted with no children/referrers).
	visited := in.recentPastBelow(m, lastInPivot)
	result := make(map[int]bool)
	for idx := range in.arena {
		if idx == m || visited[idx] {
			continue
		}
		if in.epochExceeds(idx, lastInPivot) {
			result[idx] = true
		}
	}
	in.anticone.put(m, result, in.nextSequenceNumber)
	return result
}

// pastCone returns every arena index reachable backward from idx through
// parent and referee edges, inclusive of idx.
func (in *Inner) pastCone(idx int) map[int]bool {
	seen := map[int]bool{idx: true}
	queue := []int{idx}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := &in.arena[cur]
		if n.parent != null && !seen[n.parent] {
			seen[n.parent] = true
			queue = append(queue, n.parent)
		}
		for _, r := range n.referees {
			if !seen[r] {
				seen[r] = true
				queue = append(queue, r)
			}
		}
	}
	return seen
}

// anticoneBarrier is the subset of anticone whose parent is NOT in the
// anticone (spec §4.2 step 4).
func (in *Inner) anticoneBarrier(anticone map[int]bool) map[int]bool {
	barrier := make(map[int]bool)
	for idx := range anticone {
		p := in.arena[idx].parent
		if p == null || !anticone[p] {
			barrier[idx] = true
		}
	}
	return barrier
}
