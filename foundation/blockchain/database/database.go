// Package database handles all the lower level support for the blocks and
// transactions that make up the blockchain and the rules that validate them.
package database

import (
	"errors"
	"fmt"
)

// ErrInvalidGenesis is returned when a chain does not start with the
// agreed genesis block.
var ErrInvalidGenesis = errors.New("chain does not start with the genesis block")

// =============================================================================

// ValidateChain validates every block against its parent, walking from the
// tip back to block 1, and then requires the first block to be the genesis
// block.
func ValidateChain(chain []Block, difficulty uint, evHandler func(v string, args ...any)) error {
	for i := len(chain) - 1; i > 0; i-- {
		if err := chain[i].ValidateBlock(chain[i-1], difficulty, evHandler); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}
	}

	if len(chain) == 0 || !chain[0].Equals(Genesis()) {
		return ErrInvalidGenesis
	}

	return nil
}

// Balance folds every transaction in the chain into the net amount the
// specified account has received minus what it has sent.
func Balance(chain []Block, account string) float64 {
	var balance float64
	for _, block := range chain {
		for _, tx := range block.Data {
			if tx.From == account {
				balance -= tx.Amount
			}
			if tx.To == account {
				balance += tx.Amount
			}
		}
	}

	return balance
}
