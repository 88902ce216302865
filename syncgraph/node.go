// Package syncgraph implements the Synchronization Graph: an in-memory DAG
// that admits block headers and bodies as they arrive out of order, tracks
// a five-state readiness machine per block, validates header-local rules,
// and releases blocks to the Consensus worker once their past cone is
// present (spec.md §4.1).
package syncgraph

import "github.com/tolelom/ghast/types"

// null is the arena-index NULL sentinel, matching the consensus arena's
// convention (spec §9).
const null = -1

// Status is a SyncNode's position in the five-state readiness machine.
type Status int

const (
	StatusInvalid Status = iota
	StatusHeaderOnly
	StatusHeaderParentalTreeReady
	StatusHeaderGraphReady
	StatusGraphReady
)

func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "INVALID"
	case StatusHeaderOnly:
		return "HEADER_ONLY"
	case StatusHeaderParentalTreeReady:
		return "HEADER_PARENTAL_TREE_READY"
	case StatusHeaderGraphReady:
		return "HEADER_GRAPH_READY"
	case StatusGraphReady:
		return "GRAPH_READY"
	default:
		return "UNKNOWN"
	}
}

// node is one arena slot: a SyncNode plus the DAG edges needed to propagate
// readiness, indexed by small integers per spec §9's arena discipline.
type node struct {
	header *types.Header
	hash   types.Hash

	status          Status
	blockReady      bool
	parentReclaimed bool

	parent   int
	children []int

	referees            []int
	pendingRefereeCount int
	referrers           []int

	timestamp int64 // unix seconds, last time status advanced
}
