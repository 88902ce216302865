package syncgraph

import (
	"github.com/tolelom/ghast/events"
	"github.com/tolelom/ghast/types"
)

// eraReclaimBatch bounds try_clear_old_era_blocks to at most this many
// nodes per invocation (spec §9: "Era reclamation in SyncGraph is partial").
const eraReclaimBatch = 2

func (g *Graph) newToBeHeaderParentalTreeReady(idx int) bool {
	n := &g.arena[idx]
	if n.status >= StatusHeaderParentalTreeReady {
		return false
	}
	return n.parentReclaimed || (n.parent != null && g.arena[n.parent].status >= StatusHeaderParentalTreeReady)
}

func (g *Graph) newToBeHeaderGraphReady(idx int) bool {
	n := &g.arena[idx]
	if n.status >= StatusHeaderGraphReady {
		return false
	}
	if n.pendingRefereeCount > 0 {
		return false
	}
	parentOK := n.parentReclaimed || (n.parent != null && g.arena[n.parent].status >= StatusHeaderGraphReady)
	if !parentOK {
		return false
	}
	for _, r := range n.referees {
		if g.arena[r].status < StatusHeaderGraphReady {
			return false
		}
	}
	return true
}

func (g *Graph) newToBeGraphReady(idx int) bool {
	n := &g.arena[idx]
	if !n.blockReady || n.status >= StatusGraphReady {
		return false
	}
	if n.status < StatusHeaderGraphReady {
		return false
	}
	parentOK := n.parentReclaimed || (n.parent != null && g.arena[n.parent].status >= StatusGraphReady)
	if !parentOK {
		return false
	}
	for _, r := range n.referees {
		if g.arena[r].status < StatusGraphReady {
			return false
		}
	}
	return true
}

// setAndPropagateInvalid marks idx (and transitively its children and
// referrers) INVALID, queuing them for the caller's BFS.
func (g *Graph) setAndPropagateInvalid(queue *[]int, invalidSet map[int]bool, idx int) {
	g.arena[idx].status = StatusInvalid
	invalidSet[idx] = true
	for _, c := range g.arena[idx].children {
		if !invalidSet[c] {
			*queue = append(*queue, c)
		}
	}
	for _, r := range g.arena[idx].referrers {
		if !invalidSet[r] {
			*queue = append(*queue, r)
		}
	}
}

// InsertBlockHeader admits a header, idempotent on hash. It returns whether
// the header was accepted and the set of hashes now eligible for relay
// (reached HEADER_GRAPH_READY with a body already present), per spec §4.1.
func (g *Graph) InsertBlockHeader(header *types.Header, needToVerify bool) (accepted bool, toRelay []types.Hash) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash := header.Hash()
	if g.dataMan.VerifiedInvalid(hash) {
		return false, nil
	}
	if _, ok := g.indices[hash]; ok {
		return true, nil
	}

	if needToVerify && g.parentOrRefereesInvalid(header) {
		g.insertNode(header, StatusInvalid)
		return false, nil
	}

	idx := g.insertNode(header, StatusHeaderOnly)
	g.notReady[idx] = true

	if needToVerify {
		if err := g.verifyHeaderParams(idx); err != nil {
			g.arena[idx].status = StatusInvalid
			return false, nil
		}
	}

	meInvalid := false
	invalidSet := make(map[int]bool)
	queue := []int{idx}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n := &g.arena[cur]
		if n.status == StatusInvalid {
			if cur == idx {
				meInvalid = true
			}
			g.setAndPropagateInvalid(&queue, invalidSet, cur)
			continue
		}

		if g.newToBeHeaderGraphReady(cur) {
			n.status = StatusHeaderGraphReady
			n.timestamp = nowUnix()

			if needToVerify {
				if err := g.verifyHeaderParams(cur); err != nil {
					n.status = StatusInvalid
					if cur == idx {
						meInvalid = true
					}
					g.setAndPropagateInvalid(&queue, invalidSet, cur)
					continue
				}
			}

			if n.blockReady {
				toRelay = append(toRelay, n.hash)
			}
			for _, c := range n.children {
				if g.arena[c].status < StatusHeaderGraphReady {
					queue = append(queue, c)
				}
			}
			for _, r := range n.referrers {
				if g.arena[r].status < StatusHeaderGraphReady {
					queue = append(queue, r)
				}
			}
		} else if g.newToBeHeaderParentalTreeReady(cur) {
			n.status = StatusHeaderParentalTreeReady
			n.timestamp = nowUnix()
			queue = append(queue, n.children...)
		}

		if cur == idx {
			g.dataMan.InsertBlockHeader(n.hash, n.header)
		}
	}

	for i := range invalidSet {
		g.dataMan.InvalidateBlock(g.arena[i].hash)
		delete(g.notReady, i)
		if g.emitter != nil {
			g.emitter.Emit(events.Event{Type: events.EventBlockInvalid, Data: map[string]any{"hash": string(g.arena[i].hash)}})
		}
	}

	if meInvalid {
		return false, toRelay
	}
	g.tryClearOldEraBlocksLocked()
	return true, toRelay
}

// InsertBlock admits a block body for an already-known header, propagating
// GRAPH_READY and enqueuing newly ready hashes to the Consensus worker.
func (g *Graph) InsertBlock(block *types.Block, needToVerify bool) (accepted bool, toRelay bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash := block.Header.Hash()
	if g.dataMan.VerifiedInvalid(hash) {
		return false, false
	}
	idx, ok := g.indices[hash]
	if !ok {
		return false, false
	}
	if g.arena[idx].blockReady {
		return true, false
	}
	g.arena[idx].blockReady = true

	if needToVerify {
		if err := verifyBlockBasic(block); err != nil {
			g.arena[idx].status = StatusInvalid
		}
	}

	invalidSet := make(map[int]bool)
	queue := []int{idx}
	insertSuccess := true
	if g.arena[idx].status != StatusInvalid {
		g.dataMan.InsertBlockToKV(hash, block)
	} else {
		insertSuccess = false
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		n := &g.arena[cur]
		if n.status == StatusInvalid {
			g.setAndPropagateInvalid(&queue, invalidSet, cur)
			continue
		}
		if g.newToBeGraphReady(cur) {
			n.status = StatusGraphReady
			if n.parentReclaimed {
				g.oldEraBlocksFrontier = append(g.oldEraBlocksFrontier, cur)
				g.oldEraBlocksFrontier2[cur] = true
			}
			delete(g.notReady, cur)

			g.ready <- n.hash
			if g.emitter != nil {
				g.emitter.Emit(events.Event{Type: events.EventBlockGraphReady, Data: map[string]any{"hash": string(n.hash)}})
			}

			queue = append(queue, n.children...)
			queue = append(queue, n.referrers...)
		}
	}

	for i := range invalidSet {
		g.dataMan.InvalidateBlock(g.arena[i].hash)
		delete(g.notReady, i)
	}

	if g.arena[idx].status >= StatusHeaderGraphReady {
		toRelay = true
	}
	return insertSuccess, toRelay
}

func (g *Graph) parentOrRefereesInvalid(header *types.Header) bool {
	if g.dataMan.VerifiedInvalid(header.ParentHash) {
		return true
	}
	for _, r := range header.RefereeHashes {
		if g.dataMan.VerifiedInvalid(r) {
			return true
		}
	}
	return false
}

// RemoveExpireBlocks implements spec §4.1's expiry sweep: once more than
// 10% of nodes are not GRAPH_READY, any not-ready leaf (no not-ready
// descendants queued) older than expireTime is marked INVALID.
func (g *Graph) RemoveExpireBlocks(expireTime int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.arena) == 0 || len(g.notReady)*10 <= len(g.arena) {
		return
	}

	invalidSet := make(map[int]bool)
	var queue []int
	for idx := range g.notReady {
		if g.hasNotReadyDescendant(idx) {
			continue
		}
		if g.arena[idx].timestamp < expireTime {
			queue = append(queue, idx)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if invalidSet[cur] {
			continue
		}
		g.setAndPropagateInvalid(&queue, invalidSet, cur)
	}
	for i := range invalidSet {
		g.dataMan.InvalidateBlock(g.arena[i].hash)
		delete(g.notReady, i)
	}
}

func (g *Graph) hasNotReadyDescendant(idx int) bool {
	for _, c := range g.arena[idx].children {
		if g.arena[c].status != StatusGraphReady {
			return true
		}
	}
	for _, r := range g.arena[idx].referrers {
		if g.arena[r].status != StatusGraphReady {
			return true
		}
	}
	return false
}

// TryClearOldEraBlocks removes up to eraReclaimBatch nodes per call from the
// old-era frontier, re-parenting their GRAPH_READY children as reclaimed.
func (g *Graph) TryClearOldEraBlocks() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tryClearOldEraBlocksLocked()
}

func (g *Graph) tryClearOldEraBlocksLocked() {
	cleared := 0
	eraGenesis := g.genesisIndex
	var keep []int
	for len(g.oldEraBlocksFrontier) > 0 && cleared < eraReclaimBatch {
		idx := g.oldEraBlocksFrontier[0]
		g.oldEraBlocksFrontier = g.oldEraBlocksFrontier[1:]
		if idx == eraGenesis {
			keep = append(keep, idx)
			continue
		}
		delete(g.oldEraBlocksFrontier2, idx)
		for _, c := range g.arena[idx].children {
			if g.arena[c].status == StatusGraphReady {
				g.arena[c].parentReclaimed = true
				g.oldEraBlocksFrontier = append(g.oldEraBlocksFrontier, c)
				g.oldEraBlocksFrontier2[c] = true
			}
		}
		cleared++
	}
	g.oldEraBlocksFrontier = append(keep, g.oldEraBlocksFrontier...)
}

// BlockHeaderByHash returns the admitted header for hash, if any.
func (g *Graph) BlockHeaderByHash(hash types.Hash) (*types.Header, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.indices[hash]
	if !ok {
		return nil, false
	}
	return g.arena[idx].header, true
}

// ContainsBlock reports whether hash's body has been admitted.
func (g *Graph) ContainsBlock(hash types.Hash) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.indices[hash]
	return ok && g.arena[idx].blockReady
}

// StatusOf returns hash's current readiness status.
func (g *Graph) StatusOf(hash types.Hash) (Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.indices[hash]
	if !ok {
		return 0, false
	}
	return g.arena[idx].status, true
}
