package state

import (
	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

// BalanceOf folds every confirmed transaction into the net balance of
// the specified account.
func (s *State) BalanceOf(account string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return database.Balance(s.chain, account)
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latestBlock()
}

// RetrieveChain returns a copy of the chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]database.Block{}, s.chain...)
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
