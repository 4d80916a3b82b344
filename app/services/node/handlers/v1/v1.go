// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/gossipchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Peers *peer.PeerSet
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Peers: cfg.Peers,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/mempool", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/peers", pbl.Directory)
	app.Handle(http.MethodGet, version, "/balance/:address", pbl.Balance)
}
