package worker

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
)

// maxShareRequests represents the max number of pending network share
// requests that can be outstanding before share requests are dropped. To keep
// this simple, a buffered channel of this arbitrary number is being used. If
// the channel does become full, requests for new data to be shared will not
// be accepted.
const maxShareRequests = 100

// =============================================================================

// shareTxOperations handles sharing new transactions.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation shares a new transaction with the known peers.
func (w *Worker) runShareTxOperation(tx database.Tx) {
	w.evHandler("worker: runShareTxOperation: started")
	defer w.evHandler("worker: runShareTxOperation: completed")

	if err := w.broadcaster.BroadcastTx(tx); err != nil {
		w.evHandler("worker: runShareTxOperation: WARNING: %s", err)
	}
}

// =============================================================================

// shareBlockOperations handles sharing new blocks.
func (w *Worker) shareBlockOperations() {
	w.evHandler("worker: shareBlockOperations: G started")
	defer w.evHandler("worker: shareBlockOperations: G completed")

	for {
		select {
		case block := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(block)
			}
		case <-w.shut:
			w.evHandler("worker: shareBlockOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation shares a block with the known peers.
func (w *Worker) runShareBlockOperation(block database.Block) {
	w.evHandler("worker: runShareBlockOperation: started: blk[%d]", block.Index)
	defer w.evHandler("worker: runShareBlockOperation: completed")

	if err := w.broadcaster.BroadcastBlock(block); err != nil {
		w.evHandler("worker: runShareBlockOperation: WARNING: %s", err)
	}
}
