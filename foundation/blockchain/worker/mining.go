package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
)

// ErrShutdown is returned when a mining request can't be served because
// the worker is shutting down.
var ErrShutdown = errors.New("worker is shutting down")

// mineRequest asks the mining G to mine a block that rewards the
// beneficiary. The outcome is delivered on the reply channel.
type mineRequest struct {
	beneficiary string
	reply       chan mineResult
}

type mineResult struct {
	block database.Block
	err   error
}

// =============================================================================

// Mine asks the mining G to mine a new block over the mempool and waits for
// the outcome. Cancelling the context stops the wait, not the mining.
func (w *Worker) Mine(ctx context.Context, beneficiary string) (database.Block, error) {
	req := mineRequest{
		beneficiary: beneficiary,
		reply:       make(chan mineResult, 1),
	}

	select {
	case w.mineRequests <- req:
	case <-w.shut:
		return database.Block{}, ErrShutdown
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.block, res.err
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	}
}

// =============================================================================

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.mineRequests:
			if w.isShutdown() {
				req.reply <- mineResult{err: ErrShutdown}
				continue
			}
			block, err := w.runMiningOperation(req.beneficiary)
			req.reply <- mineResult{block: block, err: err}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes all the transactions from the mempool and writes a
// new block to the chain.
func (w *Worker) runMiningOperation(beneficiary string) (database.Block, error) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	t := time.Now()
	block, err := w.state.MineNewBlock(w.ctx, beneficiary)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrInvalidPool):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: invalid transactions in mempool")
		case w.ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return block, err
	}

	w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d] hash[%s]", block.Index, block.Hash)

	return block, nil
}
