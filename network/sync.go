package network

import (
	"encoding/json"
	"log"

	"github.com/tolelom/ghast/syncgraph"
	"github.com/tolelom/ghast/types"
)

// GetBlocksRequest asks a peer for block bodies by hash, used once their
// headers are already HEADER_GRAPH_READY locally but the bodies are
// missing (spec §4.1).
type GetBlocksRequest struct {
	Hashes []string `json:"hashes"`
}

// BlocksResponse carries a batch of block bodies.
type BlocksResponse struct {
	Blocks []*types.Block `json:"blocks"`
}

// Syncer relays headers and bodies between a Node and a syncgraph.Graph:
// every admitted header/block that SyncGraph marks for relay is
// broadcast, and incoming headers/blocks are fed back into SyncGraph.
type Syncer struct {
	node *Node
	sg   *syncgraph.Graph
}

// NewSyncer wires node's header/block/get-blocks handlers to sg.
func NewSyncer(node *Node, sg *syncgraph.Graph) *Syncer {
	s := &Syncer{node: node, sg: sg}
	node.Handle(MsgHeader, s.handleHeader)
	node.Handle(MsgBlock, s.handleBlock)
	node.Handle(MsgGetBlocks, s.handleGetBlocks)
	node.Handle(MsgBlocks, s.handleBlocks)
	return s
}

func (s *Syncer) handleHeader(_ *Peer, msg Message) {
	var header types.Header
	if err := json.Unmarshal(msg.Payload, &header); err != nil {
		log.Printf("[sync] unmarshal header: %v", err)
		return
	}
	_, toRelay := s.sg.InsertBlockHeader(&header, true)
	for _, h := range toRelay {
		if hh, ok := s.sg.BlockHeaderByHash(h); ok {
			s.node.BroadcastHeader(hh)
		}
	}
}

func (s *Syncer) handleBlock(_ *Peer, msg Message) {
	var block types.Block
	if err := json.Unmarshal(msg.Payload, &block); err != nil {
		log.Printf("[sync] unmarshal block: %v", err)
		return
	}
	accepted, toRelay := s.sg.InsertBlock(&block, true)
	if accepted && toRelay {
		s.node.BroadcastBlock(&block)
	}
}

// RequestBlocks asks peer for the bodies of the given hashes.
func (s *Syncer) RequestBlocks(peer *Peer, hashes []types.Hash) error {
	strs := make([]string, len(hashes))
	for i, h := range hashes {
		strs[i] = string(h)
	}
	req, err := json.Marshal(GetBlocksRequest{Hashes: strs})
	if err != nil {
		return err
	}
	return peer.Send(Message{Type: MsgGetBlocks, Payload: req})
}

func (s *Syncer) handleGetBlocks(peer *Peer, msg Message) {
	var req GetBlocksRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return
	}
	blocks := make([]*types.Block, 0, len(req.Hashes))
	for _, hs := range req.Hashes {
		h := types.Hash(hs)
		if !s.sg.ContainsBlock(h) {
			continue
		}
		header, ok := s.sg.BlockHeaderByHash(h)
		if !ok {
			continue
		}
		blocks = append(blocks, &types.Block{Header: *header})
	}
	data, err := json.Marshal(BlocksResponse{Blocks: blocks})
	if err != nil {
		return
	}
	_ = peer.Send(Message{Type: MsgBlocks, Payload: data})
}

func (s *Syncer) handleBlocks(_ *Peer, msg Message) {
	var resp BlocksResponse
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		return
	}
	for _, b := range resp.Blocks {
		if _, toRelay := s.sg.InsertBlock(b, true); toRelay {
			s.node.BroadcastBlock(b)
		}
	}
}
