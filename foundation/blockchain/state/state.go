// Package state is the core API for the blockchain and implements all the
// business rules and processing. It performs no network I/O, anything
// that needs to reach other nodes is handed to the registered Worker.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/mempool"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blockchain.
type EventHandler func(v string, args ...any)

// Identity represents the signing capability of this node. Keys are never
// inspected by this package.
type Identity interface {
	Sign(tx database.Tx) (string, error)
	Verify(tx database.Tx, sig string, publicKey string) bool
}

// Worker interface represents the behavior required to be implemented by any
// package providing support for sharing transactions and blocks with the
// rest of the network.
type Worker interface {
	Shutdown()
	SignalShareTx(tx database.Tx)
	SignalShareBlock(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Identity  Identity
	EvHandler EventHandler
}

// State manages the chain and the pending transactions of a node.
type State struct {
	mu        sync.Mutex
	identity  Identity
	evHandler EventHandler

	genesis genesis.Genesis
	chain   []database.Block
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain starting from the genesis block.
func New(cfg Config) (*State, error) {
	if cfg.Identity == nil {
		return nil, errors.New("an identity is required to sign transactions")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	state := State{
		identity:  cfg.Identity,
		evHandler: ev,
		genesis:   genesis.Default(),
		chain:     []database.Block{database.Genesis()},
		mempool:   mempool.New(),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// latestBlock must be called with the lock held.
func (s *State) latestBlock() database.Block {
	return s.chain[len(s.chain)-1]
}
