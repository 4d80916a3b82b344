package cmd

import (
	"fmt"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.Generate()
		if err != nil {
			return err
		}

		if err := w.Save(walletPath); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), w.PublicKey())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
