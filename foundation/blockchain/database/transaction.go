package database

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

// =============================================================================

// Tx is the transactional information between two parties. The account
// strings are hex encoded public keys, with the exception of the system
// account that pays mining rewards.
type Tx struct {
	From      string  `json:"from"`      // Account sending the value, or the system account.
	To        string  `json:"to"`        // Account receiving the value.
	Amount    float64 `json:"amount"`    // Monetary value moved by this transaction.
	TimeStamp int64   `json:"timestamp"` // Milliseconds since epoch when the transaction was created.
	Signature string  `json:"signature"` // Hex signature of the sender over SigningMessage.
}

// NewTx constructs a new unsigned transaction stamped with the current time.
func NewTx(from string, to string, amount float64) Tx {
	return Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		TimeStamp: time.Now().UnixMilli(),
	}
}

// SigningMessage returns the bytes the sender signs: from-to-amount-timestamp.
// The amount is written in its shortest decimal form.
func (tx Tx) SigningMessage() []byte {
	amount := strconv.FormatFloat(tx.Amount, 'f', -1, 64)
	return fmt.Appendf(nil, "%s-%s-%s-%d", tx.From, tx.To, amount, tx.TimeStamp)
}

// IsSystem reports whether the transaction is a mining reward.
func (tx Tx) IsSystem() bool {
	return tx.From == genesis.SystemAccount
}

// Equals performs a structural comparison of two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx == otherTx
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s:%v:%d", short(tx.From), short(tx.To), tx.Amount, tx.TimeStamp)
}

// short trims long hex account strings for log lines.
func short(account string) string {
	if len(account) > 10 {
		return account[:10]
	}
	return account
}
