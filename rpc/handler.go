package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/ghast/blockdata"
	"github.com/tolelom/ghast/consensus"
	"github.com/tolelom/ghast/indexer"
	"github.com/tolelom/ghast/syncgraph"
	"github.com/tolelom/ghast/types"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	sg      *syncgraph.Graph
	worker  *consensus.Worker
	dataMan blockdata.Manager
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler.
func NewHandler(sg *syncgraph.Graph, worker *consensus.Worker, dataMan blockdata.Manager, idx *indexer.Indexer) *Handler {
	return &Handler{sg: sg, worker: worker, dataMan: dataMan, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getPivotChain":
		return okResponse(req.ID, h.worker.PivotChain())

	case "getTerminals":
		return okResponse(req.ID, h.worker.Terminals())

	case "getBlockHeader":
		return h.getBlockHeader(req)

	case "getBlockStatus":
		return h.getBlockStatus(req)

	case "getEpochNumber":
		return h.getEpochNumber(req)

	case "getConfirmationRisk":
		return h.getConfirmationRisk(req)

	case "getBlocksByMiner":
		return h.getBlocksByMiner(req)

	case "getPartialInvalidBlocks":
		return h.getPartialInvalidBlocks(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getBlockHeader(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Hash == "" {
		return errResponse(req.ID, CodeInvalidParams, "hash is required")
	}
	header, ok := h.sg.BlockHeaderByHash(types.Hash(params.Hash))
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "unknown block")
	}
	return okResponse(req.ID, header)
}

func (h *Handler) getBlockStatus(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	status, ok := h.sg.StatusOf(types.Hash(params.Hash))
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "unknown block")
	}
	return okResponse(req.ID, map[string]any{"status": status.String()})
}

func (h *Handler) getEpochNumber(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	epoch, ok := h.worker.EpochNumber(types.Hash(params.Hash))
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "block has no assigned epoch")
	}
	return okResponse(req.ID, map[string]any{"epoch_number": epoch})
}

func (h *Handler) getConfirmationRisk(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	risk, ok := h.worker.RiskOf(types.Hash(params.Hash))
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "risk no longer tracked for this block")
	}
	return okResponse(req.ID, map[string]any{"risk": risk})
}

func (h *Handler) getBlocksByMiner(req Request) Response {
	var params struct {
		Miner string `json:"miner"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Miner == "" {
		return errResponse(req.ID, CodeInvalidParams, "miner is required")
	}
	hashes, err := h.indexer.BlocksByMiner(params.Miner)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, hashes)
}

func (h *Handler) getPartialInvalidBlocks(req Request) Response {
	hashes, err := h.indexer.PartialInvalidBlocks()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, hashes)
}
