package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var nodeURL string

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance as seen by a node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.Load(walletPath)
		if err != nil {
			return err
		}

		resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s", nodeURL, url.PathEscape(w.PublicKey())))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node responded with %s", resp.Status)
		}

		var balance struct {
			Balance float64 `json:"balance"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "For Account:", w.PublicKey())
		fmt.Fprintln(cmd.OutOrStdout(), balance.Balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&nodeURL, "url", "u", "http://localhost:8080", "Url of the node.")
}
