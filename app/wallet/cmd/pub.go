package cmd

import (
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

// pubCmd represents the pub command
var pubCmd = &cobra.Command{
	Use:   "pub",
	Short: "Print the public key of the wallet, creating the wallet if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.Load(walletPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Public Key: %s\n", w.PublicKey())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pubCmd)
}
