package syncgraph

import (
	"errors"
	"fmt"

	"github.com/tolelom/ghast/types"
)

var (
	ErrInvalidHeight     = errors.New("syncgraph: invalid height")
	ErrInvalidTimestamp  = errors.New("syncgraph: timestamp before parent or referee")
	ErrInvalidGasLimit   = errors.New("syncgraph: gas limit out of bound")
	ErrInvalidDifficulty = errors.New("syncgraph: difficulty does not match expected")
	ErrParentInvalid     = errors.New("syncgraph: parent or referee already invalid")
)

// verifyHeaderParams implements spec §4.1's header-local rules: height =
// parent.height + 1, timestamp >= parent and every referee timestamp,
// gas-limit within ±parent/divisor of parent, and difficulty matching the
// adjustment schedule. It can only run once parent/referees are resolved
// in the arena (HEADER_GRAPH_READY re-verification), but is also attempted
// eagerly at insertion when the parent is already known.
func (g *Graph) verifyHeaderParams(idx int) error {
	n := &g.arena[idx]
	if n.parent == null {
		return nil // genesis or parent not yet linked, nothing to check against
	}
	parent := &g.arena[n.parent]

	if parent.header.Height+1 != n.header.Height {
		return fmt.Errorf("%w: mine %d, parent %d", ErrInvalidHeight, n.header.Height, parent.header.Height)
	}
	if n.header.Timestamp < parent.header.Timestamp {
		return fmt.Errorf("%w: mine %d, parent %d", ErrInvalidTimestamp, n.header.Timestamp, parent.header.Timestamp)
	}
	for _, r := range n.referees {
		if n.header.Timestamp < g.arena[r].header.Timestamp {
			return fmt.Errorf("%w: mine %d, referee %d", ErrInvalidTimestamp, n.header.Timestamp, g.arena[r].header.Timestamp)
		}
	}

	divisor := g.params.GasLimitBoundDivisor
	if divisor == 0 {
		divisor = 1
	}
	bound := parent.header.GasLimit / divisor
	if n.header.GasLimit > parent.header.GasLimit+bound || (parent.header.GasLimit > bound && n.header.GasLimit < parent.header.GasLimit-bound) {
		return fmt.Errorf("%w: mine %d, parent %d, bound %d", ErrInvalidGasLimit, n.header.GasLimit, parent.header.GasLimit, bound)
	}

	expected := g.expectedDifficulty(n.parent)
	if n.header.Difficulty != expected {
		return fmt.Errorf("%w: mine %d, expected %d", ErrInvalidDifficulty, n.header.Difficulty, expected)
	}
	return nil
}

// expectedDifficulty implements the adjustment schedule spec §4.1 cites:
// the initial difficulty for the first period, unchanged within a period,
// and a retarget at period boundaries that moves difficulty one fixed step
// (see targetDifficulty) toward a target of one second per block.
func (g *Graph) expectedDifficulty(parentIdx int) uint64 {
	parent := &g.arena[parentIdx]
	height := parent.header.Height + 1

	if g.params.DifficultyPeriodBlocks == 0 || height <= g.params.DifficultyPeriodBlocks {
		return g.params.InitialDifficulty
	}
	if height%g.params.DifficultyPeriodBlocks != 0 {
		return parent.header.Difficulty
	}
	return g.targetDifficulty(parentIdx)
}

// targetDifficulty retargets at a period boundary: it walks back one full
// period along the parent chain to measure actual elapsed time, then raises
// difficulty by difficulty/DifficultyBoundDivisor (at least 1) if the period
// ran faster than one second per block, lowers it by the same step if it ran
// slower, and leaves it unchanged if exactly on target. The step size does
// not depend on how far the period deviated.
func (g *Graph) targetDifficulty(parentIdx int) uint64 {
	period := int64(g.params.DifficultyPeriodBlocks)
	cur := &g.arena[parentIdx]
	idx := parentIdx
	steps := period
	for steps > 0 && g.arena[idx].parent != null {
		idx = g.arena[idx].parent
		steps--
	}
	periodStart := g.arena[idx].header.Timestamp
	elapsed := cur.header.Timestamp - periodStart
	if elapsed <= 0 {
		elapsed = 1
	}
	target := period // 1 second per block target

	d := int64(cur.header.Difficulty)
	bound := d / int64(max64(g.params.DifficultyBoundDivisor, 1))
	if bound == 0 {
		bound = 1
	}
	switch {
	case elapsed < target:
		d += bound
	case elapsed > target:
		d -= bound
	}
	if d < 1 {
		d = 1
	}
	return uint64(d)
}

func max64(a uint64, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// verifyBlockBasic is spec §4.1's body-level check, delegated to types.
func verifyBlockBasic(b *types.Block) error {
	return types.VerifyBlockBasic(b)
}
