package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

// MineNewBlock credits the beneficiary with the mining reward and attempts
// to create a new block with a proper hash over every pending transaction.
// The nonce search runs without holding the state lock so peer messages are
// still processed while mining.
func (s *State) MineNewBlock(ctx context.Context, beneficiary string) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool transactions")

	reward, trans, prevBlock, err := s.prepareMining(beneficiary)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: txs[%d]", len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.genesis.Difficulty,
		PrevBlock:  prevBlock,
		Trans:      trans,
		EvHandler:  s.evHandler,
	})
	if err != nil {

		// The reward only exists for the block that was abandoned.
		s.mempool.Delete(reward)
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update chain")

	err = s.validateUpdateChain(block, reward)

	// NOTE: The block is shared with the network even when the local chain
	// did not accept it. Receiving nodes validate it on their own.
	s.Worker.SignalShareBlock(block)

	return block, err
}

// =============================================================================

// prepareMining checks the pending transactions, adds the mining reward and
// returns a snapshot of what the new block will contain.
func (s *State) prepareMining(beneficiary string) (database.Tx, []database.Tx, database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.mempool.Copy() {
		if !s.IsValidTransfer(tx) {
			s.evHandler("state: MineNewBlock: ERROR: %s: tx[%s]", ErrInvalidPool, tx)
			return database.Tx{}, nil, database.Block{}, ErrInvalidPool
		}
	}

	reward, err := s.transfer(genesis.SystemAccount, beneficiary, s.genesis.MiningReward)
	if err != nil {
		return database.Tx{}, nil, database.Block{}, fmt.Errorf("mining reward: %w", err)
	}

	return reward, s.mempool.Copy(), s.latestBlock(), nil
}

// validateUpdateChain takes the block and validates it against the current
// latest block and the resulting chain. If that passes, the block is added
// to the chain and its transactions leave the mempool. A rejected block
// takes its reward with it, the rest of the transactions stay pending.
func (s *State) validateUpdateChain(block database.Block, reward database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.IsValidBlock(block, s.latestBlock()); err != nil {
		s.mempool.Delete(reward)
		s.evHandler("state: MineNewBlock: ERROR: %s: %s", ErrBlockRejected, err)
		return fmt.Errorf("%w: %w", ErrBlockRejected, err)
	}

	chain := append(append([]database.Block{}, s.chain...), block)
	if err := s.IsValidChain(chain); err != nil {
		s.mempool.Delete(reward)
		s.evHandler("state: MineNewBlock: ERROR: %s: %s", ErrBlockRejected, err)
		return fmt.Errorf("%w: %w", ErrBlockRejected, err)
	}

	s.chain = chain
	s.mempool.Delete(block.Data...)

	s.blockEvent(block)

	return nil
}
