// Package genesis maintains the consensus parameters every node on the
// network agrees on.
package genesis

// SystemAccount is the reserved sender of mining rewards. Transactions from
// this account are never signature checked.
const SystemAccount = "system"

// Genesis represents the network wide parameters.
type Genesis struct {
	Difficulty   uint    `json:"difficulty"`    // How many leading zero hex characters a block hash needs.
	MiningReward float64 `json:"mining_reward"` // Reward for mining a block.
}

// =============================================================================

// Default returns the parameters for this version of the network. They
// are fixed constants.
func Default() Genesis {
	return Genesis{
		Difficulty:   4,
		MiningReward: 50,
	}
}
