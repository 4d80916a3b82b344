// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"github.com/ardanlabs/gossipchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of read only ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Peers *peer.PeerSet
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return err
	}

	// The upgrader writes its own response on failure, so plain requests
	// are turned away before it runs.
	if !websocket.IsWebSocketUpgrade(r) {
		return errs.NewTrusted(errors.New("websocket upgrade required"), http.StatusBadRequest)
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

// Genesis returns the consensus parameters of the network.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Chain returns the full chain of this node.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// Balance returns the confirmed balance of the specified address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	bal := balance{
		Address:     address,
		Balance:     h.State.BalanceOf(address),
		LatestBlock: h.State.RetrieveLatestBlock().Hash,
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Directory returns the peer directory of this node.
func (h Handlers) Directory(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dir := directory{
		Self:   h.Peers.Self(),
		Seed:   h.Peers.Seed(),
		Remote: h.Peers.Remote(),
		Peers:  h.Peers.Copy(peer.Peer{}),
	}

	return web.Respond(ctx, w, dir, http.StatusOK)
}
