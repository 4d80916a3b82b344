package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/gossipchain/app/services/node/handlers"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/ardanlabs/gossipchain/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_PublicMux(t *testing.T) {
	wal, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %s", err)
	}

	st, err := state.New(state.Config{Identity: wal})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	seed := peer.New("10.0.0.1", 8081)

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Peers:    peer.NewPeerSet(seed),
		Evts:     events.New(),
	})

	get := func(path string, v any) int {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		if v != nil && w.Code == http.StatusOK {
			if err := json.NewDecoder(w.Body).Decode(v); err != nil {
				t.Fatalf("\t%s\tShould decode the response of %s: %s", failed, path, err)
			}
		}
		return w.Code
	}

	t.Log("Given the need to view the ledger over http.")
	{
		var chain []database.Block
		if code := get("/v1/chain", &chain); code != http.StatusOK || len(chain) != 1 || !chain[0].Equals(database.Genesis()) {
			t.Fatalf("\t%s\tShould get back the genesis chain: %d %v", failed, code, chain)
		}
		t.Logf("\t%s\tShould get back the genesis chain.", success)

		var bal struct {
			Address string  `json:"address"`
			Balance float64 `json:"balance"`
		}
		if code := get("/v1/balance/bob", &bal); code != http.StatusOK || bal.Address != "bob" || bal.Balance != 0 {
			t.Fatalf("\t%s\tShould get back the balance: %d %v", failed, code, bal)
		}
		t.Logf("\t%s\tShould get back the balance.", success)

		var dir struct {
			Seed  peer.Peer   `json:"seed"`
			Peers []peer.Peer `json:"peers"`
		}
		if code := get("/v1/peers", &dir); code != http.StatusOK || dir.Seed != seed || len(dir.Peers) != 1 {
			t.Fatalf("\t%s\tShould get back the peer directory: %d %v", failed, code, dir)
		}
		t.Logf("\t%s\tShould get back the peer directory.", success)

		var pool []database.Tx
		if code := get("/v1/mempool", &pool); code != http.StatusOK || len(pool) != 0 {
			t.Fatalf("\t%s\tShould get back an empty mempool: %d %v", failed, code, pool)
		}
		t.Logf("\t%s\tShould get back an empty mempool.", success)

		if code := get("/v1/unknown", nil); code == http.StatusOK {
			t.Fatalf("\t%s\tShould not serve unknown routes: %d", failed, code)
		}
		t.Logf("\t%s\tShould not serve unknown routes.", success)

		var er struct {
			Error string `json:"error"`
		}
		r := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		if err := json.NewDecoder(w.Body).Decode(&er); err != nil || w.Code != http.StatusBadRequest || er.Error != "websocket upgrade required" {
			t.Fatalf("\t%s\tShould reject an events request without an upgrade: %d %v %v", failed, w.Code, er, err)
		}
		t.Logf("\t%s\tShould reject an events request without an upgrade.", success)
	}
}
