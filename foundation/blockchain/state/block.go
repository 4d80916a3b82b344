package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
)

// Set of error variables for handling blocks and chains.
var (
	ErrBlockKnown     = errors.New("block is already the latest block")
	ErrChainNotLonger = errors.New("received chain is not longer than current chain")
	ErrInvalidChain   = errors.New("received chain is not valid")
	ErrInvalidBlock   = errors.New("invalid block")
	ErrBlockRejected  = errors.New("mined block was not accepted by the local chain")
	ErrInvalidPool    = errors.New("invalid transactions, can not mine")
)

// =============================================================================

// IsValidBlock validates the candidate block as the next block after the
// reference block.
func (s *State) IsValidBlock(candidate database.Block, reference database.Block) error {
	return candidate.ValidateBlock(reference, s.genesis.Difficulty, s.evHandler)
}

// IsValidChain validates every block of the chain and its genesis block.
func (s *State) IsValidChain(chain []database.Block) error {
	return database.ValidateChain(chain, s.genesis.Difficulty, s.evHandler)
}

// ReplaceChain adopts the specified chain when it is strictly longer than
// the local chain and fully valid. Chains are never merged.
func (s *State) ReplaceChain(chain []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(chain) <= len(s.chain) {
		s.evHandler("state: ReplaceChain: ERROR: %s: got[%d] have[%d]", ErrChainNotLonger, len(chain), len(s.chain))
		return ErrChainNotLonger
	}

	if err := s.IsValidChain(chain); err != nil {
		s.evHandler("state: ReplaceChain: ERROR: %s: %s", ErrInvalidChain, err)
		return fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}

	s.chain = append([]database.Block{}, chain...)
	s.evHandler("state: ReplaceChain: replaced: blocks[%d]", len(s.chain))

	return nil
}

// AddNewBlock takes a block received from a peer, validates it and if that
// passes, appends it to the chain, drops the transactions it confirms from
// the mempool and relays it onward.
func (s *State) AddNewBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.latestBlock()

	// An echo of a block we already have.
	if latest.Hash == block.Hash {
		s.evHandler("state: AddNewBlock: already known: blk[%s]", block.Hash)
		return ErrBlockKnown
	}

	if err := s.IsValidBlock(block, latest); err != nil {
		s.evHandler("state: AddNewBlock: ERROR: %s: blk[%d]: %s", ErrInvalidBlock, block.Index, err)
		return fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	s.chain = append(s.chain, block)

	// Pools diverge between nodes because of lost datagrams, so only the
	// transactions confirmed by this block are removed.
	s.mempool.Delete(block.Data...)

	s.blockEvent(block)

	s.Worker.SignalShareBlock(block)

	return nil
}

// =============================================================================

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: {"hash":%q,"block":%s}`, block.Hash, string(blockJSON))
}
