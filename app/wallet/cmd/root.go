// Package cmd contains wallet app
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var walletPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the key pair of a gossipchain node",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet", "w", "wallet.json", "Path to the wallet file.")
}
