// Package worker implements mining and the sharing of transactions and
// blocks with the network for the blockchain.
package worker

import (
	"context"
	"sync"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
)

// Broadcaster represents the behavior required to send ledger data to
// every known peer.
type Broadcaster interface {
	BroadcastTx(tx database.Tx) error
	BroadcastBlock(block database.Block) error
}

// =============================================================================

// Worker manages the mining and sharing workflows for the blockchain.
type Worker struct {
	state        *state.State
	broadcaster  Broadcaster
	wg           sync.WaitGroup
	shut         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	mineRequests chan mineRequest
	txSharing    chan database.Tx
	blockSharing chan database.Block
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, broadcaster Broadcaster, evHandler state.EventHandler) *Worker {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	// Mining is only ever cancelled by shutting the worker down.
	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:        st,
		broadcaster:  broadcaster,
		shut:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		mineRequests: make(chan mineRequest),
		txSharing:    make(chan database.Tx, maxShareRequests),
		blockSharing: make(chan database.Block, maxShareRequests),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.shareTxOperations,
		w.shareBlockOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel mining")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalShareTx signals a share transaction operation. If
// maxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// SignalShareBlock signals a share block operation. If
// maxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share block signaled")
	default:
		w.evHandler("worker: SignalShareBlock: queue full, blocks won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
