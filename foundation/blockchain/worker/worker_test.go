package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"go.uber.org/goleak"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// recorder captures what the worker broadcasts.
type recorder struct {
	mu     sync.Mutex
	txs    []database.Tx
	blocks []database.Block
}

func (r *recorder) BroadcastTx(tx database.Tx) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, tx)
	return nil
}

func (r *recorder) BroadcastBlock(block database.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	return nil
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs), len(r.blocks)
}

// waitFor polls the recorder until it holds the expected counts.
func (r *recorder) waitFor(txs int, blocks int) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if t, b := r.counts(); t == txs && b == blocks {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func newWorker(t *testing.T) (*state.State, *worker.Worker, *wallet.Wallet, *recorder) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a wallet: %s", err)
	}

	ev := func(v string, args ...any) { t.Logf(v, args...) }

	st, err := state.New(state.Config{Identity: w, EvHandler: ev})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	var rec recorder
	wrk := worker.Run(st, &rec, ev)

	return st, wrk, w, &rec
}

// =============================================================================

func Test_MineAndShare(t *testing.T) {
	defer goleak.VerifyNone(t)

	st, wrk, w, rec := newWorker(t)
	defer st.Shutdown()

	t.Log("Given the need to mine and share through the worker.")
	{
		block, err := wrk.Mine(context.Background(), w.PublicKey())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if !block.Equals(st.RetrieveLatestBlock()) {
			t.Fatalf("\t%s\tShould add the block to the chain.", failed)
		}
		t.Logf("\t%s\tShould add the block to the chain.", success)

		if !rec.waitFor(0, 1) {
			t.Fatalf("\t%s\tShould broadcast the block and never the reward.", failed)
		}
		t.Logf("\t%s\tShould broadcast the block and never the reward.", success)

		if _, err := st.Transfer(w.PublicKey(), "bob", 5); err != nil {
			t.Fatalf("\t%s\tShould be able to transfer: %s", failed, err)
		}

		if !rec.waitFor(1, 1) {
			t.Fatalf("\t%s\tShould broadcast the transfer.", failed)
		}
		t.Logf("\t%s\tShould broadcast the transfer.", success)
	}
}

func Test_MineAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	st, wrk, w, _ := newWorker(t)
	st.Shutdown()

	if _, err := wrk.Mine(context.Background(), w.PublicKey()); !errors.Is(err, worker.ErrShutdown) {
		t.Fatalf("Should not mine once shut down: %v", err)
	}

	// Signals after shutdown must not block.
	st.Worker.SignalShareTx(database.Tx{})
	st.Worker.SignalShareBlock(database.Block{})
}
