// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dxidlabs/ledger/business/web/errs"
	"github.com/dxidlabs/ledger/business/web/query"
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/peer"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/nameservice"
	"github.com/dxidlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// SubmitNodeTransaction adds new node transactions to the mempool.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a transaction.
	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	// Ask the state package to add this transaction to the mempool and perform
	// any other business logic.
	h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tx, "fee", tx.Fee)
	if err := h.State.UpsertNodeTransaction(tx); err != nil {
		return errs.NewLedger(err)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transactions added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	// Decode the JSON in the post call into block data.
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	// Convert the block data into a block. This action will create a merkle
	// tree for the set of transactions required for blockchain operations.
	block, err := database.ToBlock(blockData)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode block: %w", err), http.StatusBadRequest)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return errs.NewTrusted(fmt.Errorf("block not accepted: %w", err), http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()

	status := peer.PeerStatus{
		LatestBlockHash:   latestBlock.PowHash,
		LatestBlockHeight: latestBlock.Header.Height,
		KnownPeers:        h.State.RetrieveKnownPeers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, to, err := query.BlockRange(web.Param(r, "from"), web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return errs.NewLedger(err)
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.RetrieveMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// SignalMining asks the worker to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

type stakeRequest struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required,gt=0"`
}

type stakeResponse struct {
	Address database.Address `json:"address"`
	Name    string           `json:"name"`
	Stake   uint64           `json:"stake"`
}

// Stake bonds stake to an address.
func (h Handlers) Stake(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.stakeAction(ctx, w, r, func(addr database.Address, amount uint64) error {
		h.State.Stake(addr, amount)
		return nil
	})
}

// Unstake releases stake from an address.
func (h Handlers) Unstake(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.stakeAction(ctx, w, r, h.State.Unstake)
}

// Slash removes stake from an address as a penalty.
func (h Handlers) Slash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.stakeAction(ctx, w, r, func(addr database.Address, amount uint64) error {
		h.State.Slash(addr, amount)
		return nil
	})
}

func (h Handlers) stakeAction(ctx context.Context, w http.ResponseWriter, r *http.Request, action func(database.Address, uint64) error) error {
	var req stakeRequest
	if err := web.Decode(r, &req); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	addr, err := h.NS.Address(req.Address)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := action(addr, req.Amount); err != nil {
		return errs.NewLedger(err)
	}

	resp := stakeResponse{
		Address: addr,
		Name:    h.NS.Lookup(addr),
		Stake:   h.State.QueryBalance(addr).Stake,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
