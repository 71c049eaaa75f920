// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dxidlabs/ledger/business/web/errs"
	"github.com/dxidlabs/ledger/business/web/query"
	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/events"
	"github.com/dxidlabs/ledger/foundation/nameservice"
	"github.com/dxidlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new user transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var dbTx database.Tx
	if err := web.Decode(r, &dbTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", dbTx, "inputs", len(dbTx.Inputs), "outputs", len(dbTx.Outputs), "fee", dbTx.Fee)
	if err := h.State.UpsertWalletTransaction(dbTx); err != nil {
		return errs.NewLedger(err)
	}

	resp := struct {
		Status string        `json:"status"`
		Hash   database.Hash `json:"hash"`
	}{
		Status: "transactions added to mempool",
		Hash:   dbTx.TxHash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Status returns a summary of the chain as this node sees it.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()
	supply := h.State.QuerySupply()

	st := status{
		LatestBlock: latest.PowHash,
		Height:      latest.Header.Height,
		Uncommitted: h.State.QueryMempoolLength(),
		Beneficiary: h.State.RetrieveBeneficiary(),
		Difficulty:  h.State.QueryConsensus().Difficulty,
		TotalIssued: supply.TotalIssued,
		MaxSupply:   supply.MaxSupply,
		KnownPeers:  len(h.State.RetrieveKnownPeers()),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Consensus returns the difficulty, stake ledger, and last height.
func (h Handlers) Consensus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryConsensus(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	trans := make([]tx, len(mempool))
	for i, dbTx := range mempool {
		trans[i] = toTx(h.NS, dbTx)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Balances returns the current balances for all credited addresses or for
// the specified address.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var blkBalances []state.Balance

	switch param := web.Param(r, "address"); param {
	case "":
		blkBalances = h.State.QueryBalances()

	default:
		addr, err := h.NS.Address(param)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		blkBalances = []state.Balance{h.State.QueryBalance(addr)}
	}

	bals := make([]balance, len(blkBalances))
	for i, bal := range blkBalances {
		bals[i] = balance{
			Address:   bal.Address,
			Name:      h.NS.Lookup(bal.Address),
			Balance:   bal.Balance,
			Spendable: bal.Spendable,
			Stake:     bal.Stake,
		}
	}

	latest := h.State.RetrieveLatestBlock()

	resp := balances{
		LatestBlock: latest.PowHash,
		Height:      latest.Header.Height,
		Uncommitted: h.State.QueryMempoolLength(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Outputs returns the unspent outputs owned by the specified address. A
// wallet uses these to build the inputs of a transaction.
func (h Handlers) Outputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := h.NS.Address(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	outs := h.State.QueryOutputs(addr)
	if outs == nil {
		outs = []database.OutputRef{}
	}

	return web.Respond(ctx, w, outs, http.StatusOK)
}

// BlocksByNumber returns the blocks in the specified range.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, to, err := query.BlockRange(web.Param(r, "from"), web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return errs.NewLedger(err)
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(h.NS, dbBlocks), http.StatusOK)
}

// BlocksByAddress returns the blocks proposed by or paying the address.
func (h Handlers) BlocksByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := h.NS.Address(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByAddress(addr)
	if err != nil {
		return errs.NewLedger(err)
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(h.NS, dbBlocks), http.StatusOK)
}

// Reward returns the reward paid for a block at the specified height. The
// value "next" means the height of the next block.
func (h Handlers) Reward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var height uint64

	switch param := web.Param(r, "height"); param {
	case "next", "":
		height = h.State.RetrieveLatestBlock().Header.Height + 1

	default:
		var err error
		height, err = strconv.ParseUint(param, 10, 64)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	return web.Respond(ctx, w, h.State.QueryReward(height), http.StatusOK)
}

// Proposer draws the next proposer weighted by stake.
func (h Handlers) Proposer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := h.State.QueryProposer()
	if err != nil {
		return errs.NewLedger(err)
	}

	resp := proposer{
		Address: addr,
		Name:    h.NS.Lookup(addr),
		Stake:   h.State.QueryBalance(addr).Stake,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
