// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/dxidlabs/ledger/app/services/node/handlers/v1/private"
	"github.com/dxidlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/dxidlabs/ledger/foundation/blockchain/state"
	"github.com/dxidlabs/ledger/foundation/events"
	"github.com/dxidlabs/ledger/foundation/nameservice"
	"github.com/dxidlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/consensus", pbl.Consensus)
	app.Handle(http.MethodGet, version, "/proposer", pbl.Proposer)
	app.Handle(http.MethodGet, version, "/reward/:height", pbl.Reward)
	app.Handle(http.MethodGet, version, "/balances/list", pbl.Balances)
	app.Handle(http.MethodGet, version, "/balances/list/:address", pbl.Balances)
	app.Handle(http.MethodGet, version, "/outputs/list/:address", pbl.Outputs)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/address/:address", pbl.BlocksByAddress)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/block/list/:from/:to", prv.BlocksByNumber)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
	app.Handle(http.MethodPost, version, "/node/tx/submit", prv.SubmitNodeTransaction)
	app.Handle(http.MethodGet, version, "/node/tx/list", prv.Mempool)
	app.Handle(http.MethodPost, version, "/node/stake", prv.Stake)
	app.Handle(http.MethodPost, version, "/node/unstake", prv.Unstake)
	app.Handle(http.MethodPost, version, "/node/slash", prv.Slash)
	app.Handle(http.MethodPost, version, "/node/mining/signal", prv.SignalMining)
}
