// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
)

// Mempool represents the pending transactions of a node in the order they
// were received. Transactions are deduplicated by structural equality.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: []database.Tx{},
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether a structurally equal transaction is in the pool.
func (mp *Mempool) Contains(tx database.Tx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.index(tx) != -1
}

// Upsert adds a transaction to the end of the mempool. It returns false if
// an equal transaction already exists.
func (mp *Mempool) Upsert(tx database.Tx) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.index(tx) != -1 {
		return false
	}

	mp.pool = append(mp.pool, tx)
	return true
}

// Delete removes every transaction from the mempool that is equal to one of
// the specified transactions.
func (mp *Mempool) Delete(trans ...database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	keep := make([]database.Tx, 0, len(mp.pool))

next:
	for _, tx := range mp.pool {
		for _, del := range trans {
			if tx.Equals(del) {
				continue next
			}
		}
		keep = append(keep, tx)
	}

	mp.pool = keep
}

// Replace swaps the entire content of the mempool.
func (mp *Mempool) Replace(trans []database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append([]database.Tx{}, trans...)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = []database.Tx{}
}

// Copy returns a copy of the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return append([]database.Tx{}, mp.pool...)
}

// =============================================================================

// index returns the position of an equal transaction or -1.
func (mp *Mempool) index(tx database.Tx) int {
	for i, ptx := range mp.pool {
		if ptx.Equals(tx) {
			return i
		}
	}

	return -1
}
