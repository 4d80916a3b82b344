package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

// Set of error variables for handling transactions.
var (
	ErrSelfTransfer         = errors.New("cannot transfer to the same address")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInvalidTransactions  = errors.New("received transactions are not valid")
	ErrDuplicateTransaction = errors.New("transaction already exists")
)

// =============================================================================

// Transfer signs a new transaction from one account to another and adds it
// to the mempool. Every transaction except mining rewards is shared with
// the network.
func (s *State) Transfer(from string, to string, amount float64) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transfer(from, to, amount)
}

// IsValidTransfer checks the signature of the transaction against its
// sender. Mining rewards are always valid.
func (s *State) IsValidTransfer(tx database.Tx) bool {
	if tx.IsSystem() {
		return true
	}

	return s.identity.Verify(tx, tx.Signature, tx.From)
}

// AddNewTransaction takes a transaction received from a peer, validates it
// and if that passes, adds it to the mempool and relays it onward.
func (s *State) AddNewTransaction(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mempool.Contains(tx) {
		s.evHandler("state: AddNewTransaction: ERROR: %s: tx[%s]", ErrDuplicateTransaction, tx)
		return ErrDuplicateTransaction
	}

	if !s.IsValidTransfer(tx) {
		s.evHandler("state: AddNewTransaction: ERROR: %s: tx[%s]", ErrInvalidTransaction, tx)
		return ErrInvalidTransaction
	}

	s.mempool.Upsert(tx)
	s.evHandler("state: AddNewTransaction: added: tx[%s]", tx)

	s.Worker.SignalShareTx(tx)

	return nil
}

// ReplaceTransactions swaps the mempool for the specified transactions
// if every one of them is valid.
func (s *State) ReplaceTransactions(trans []database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range trans {
		if !s.IsValidTransfer(tx) {
			s.evHandler("state: ReplaceTransactions: ERROR: %s: tx[%s]", ErrInvalidTransactions, tx)
			return ErrInvalidTransactions
		}
	}

	s.mempool.Replace(trans)
	s.evHandler("state: ReplaceTransactions: replaced: txs[%d]", len(trans))

	return nil
}

// =============================================================================

// transfer must be called with the lock held.
func (s *State) transfer(from string, to string, amount float64) (database.Tx, error) {
	if from == to {
		s.evHandler("state: Transfer: ERROR: %s", ErrSelfTransfer)
		return database.Tx{}, ErrSelfTransfer
	}

	if !(amount > 0) {
		s.evHandler("state: Transfer: ERROR: %s", ErrInvalidAmount)
		return database.Tx{}, ErrInvalidAmount
	}

	if from != genesis.SystemAccount {
		if balance := database.Balance(s.chain, from); balance < amount {
			s.evHandler("state: Transfer: ERROR: %s: balance[%v] amount[%v]", ErrInsufficientBalance, balance, amount)
			return database.Tx{}, ErrInsufficientBalance
		}
	}

	tx := database.NewTx(from, to, amount)

	sig, err := s.identity.Sign(tx)
	if err != nil {
		s.evHandler("state: Transfer: ERROR: sign: %s", err)
		return database.Tx{}, fmt.Errorf("sign: %w", err)
	}
	tx.Signature = sig

	s.mempool.Upsert(tx)
	s.evHandler("state: Transfer: added: tx[%s]", tx)

	// Every node mints its own rewards so they are never shared.
	if !tx.IsSystem() {
		s.Worker.SignalShareTx(tx)
	}

	return tx, nil
}
