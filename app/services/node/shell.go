package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/state"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/wallet"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/worker"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const prompt = "gossipchain => "

// shell is the interactive command line of a running node.
type shell struct {
	state    *state.State
	worker   *worker.Worker
	wallet   *wallet.Wallet
	peers    *peer.PeerSet
	shutdown chan<- os.Signal
	out      io.Writer
}

// run reads commands from the reader, one per line, until the reader is
// exhausted or the context is cancelled.
func (sh *shell) run(ctx context.Context, in io.Reader) {
	sh.exec(ctx, "help")

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(sh.out, prompt)

		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			sh.exec(ctx, line)
		case <-ctx.Done():
			return
		}
	}
}

// exec runs a single command line.
func (sh *shell) exec(ctx context.Context, line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	root := sh.command()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(sh.out, "ERROR: %s\n", err)
	}
}

// command builds the command tree. A new tree is built for every line so
// no flag state leaks between commands.
func (sh *shell) command() *cobra.Command {
	root := cobra.Command{
		Use:           "gossipchain",
		Short:         "Interactive shell of a gossipchain node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(sh.out)
	root.SetErr(sh.out)
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		&cobra.Command{
			Use:   "tranfer <to> <amount>",
			Short: "Transfer amount from local account to another",
			Args:  cobra.ExactArgs(2),
			RunE:  sh.transfer,
		},
		&cobra.Command{
			Use:   "mine",
			Short: "Mine a new block",
			Args:  cobra.NoArgs,
			RunE:  sh.mine,
		},
		&cobra.Command{
			Use:   "chain",
			Short: "Get the current blockchain",
			Args:  cobra.NoArgs,
			RunE:  sh.chain,
		},
		&cobra.Command{
			Use:   "blance <address>",
			Short: "Get the blance of an address",
			Args:  cobra.ExactArgs(1),
			RunE:  sh.balance,
		},
		&cobra.Command{
			Use:   "pub",
			Short: "Get local wallet public key",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Public Key: %s\n", sh.wallet.PublicKey())
			},
		},
		&cobra.Command{
			Use:   "peers",
			Short: "Get all peers in the network",
			Args:  cobra.NoArgs,
			RunE:  sh.listPeers,
		},
		&cobra.Command{
			Use:   "data",
			Short: "Get all transactions in the node",
			Args:  cobra.NoArgs,
			RunE:  sh.data,
		},
		&cobra.Command{
			Use:   "exit",
			Short: "Shut the node down",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				select {
				case sh.shutdown <- syscall.SIGTERM:
				default:
				}
			},
		},
	)

	return &root
}

// =============================================================================

func (sh *shell) transfer(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("parsing amount %q: %w", args[1], err)
	}

	tx, err := sh.state.Transfer(sh.wallet.PublicKey(), args[0], amount)
	if err != nil {
		return err
	}

	return renderTrans(cmd.OutOrStdout(), []database.Tx{tx})
}

func (sh *shell) mine(cmd *cobra.Command, args []string) error {
	if _, err := sh.worker.Mine(cmd.Context(), sh.wallet.PublicKey()); err != nil {
		return err
	}

	return renderChain(cmd.OutOrStdout(), sh.state.RetrieveChain())
}

func (sh *shell) chain(cmd *cobra.Command, args []string) error {
	return renderChain(cmd.OutOrStdout(), sh.state.RetrieveChain())
}

func (sh *shell) balance(cmd *cobra.Command, args []string) error {
	rows := [][]string{
		jsonRow(args[0], sh.state.BalanceOf(args[0])),
	}

	return render(cmd.OutOrStdout(), []string{"address", "balance"}, rows)
}

func (sh *shell) listPeers(cmd *cobra.Command, args []string) error {
	var rows [][]string
	for _, p := range sh.peers.Copy(peer.Peer{}) {
		rows = append(rows, jsonRow(p.Address, p.Port))
	}

	return render(cmd.OutOrStdout(), []string{"address", "port"}, rows)
}

func (sh *shell) data(cmd *cobra.Command, args []string) error {
	return renderTrans(cmd.OutOrStdout(), sh.state.RetrieveMempool())
}

// =============================================================================

func renderChain(w io.Writer, chain []database.Block) error {
	rows := make([][]string, len(chain))
	for i, b := range chain {
		rows[i] = jsonRow(b.Index, b.TimeStamp, b.Data, b.Hash, b.PrevHash, b.Nonce)
	}

	return render(w, []string{"index", "timestamp", "data", "hash", "prevHash", "nonce"}, rows)
}

func renderTrans(w io.Writer, trans []database.Tx) error {
	rows := make([][]string, len(trans))
	for i, tx := range trans {
		rows[i] = jsonRow(tx.From, tx.To, tx.Amount, tx.TimeStamp, tx.Signature)
	}

	return render(w, []string{"from", "to", "amount", "timestamp", "signature"}, rows)
}

// render writes one table row per element. Nothing is written for an
// empty set.
func render(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header(header)

	if err := table.Bulk(rows); err != nil {
		return err
	}

	return table.Render()
}

// jsonRow writes every value in its JSON form.
func jsonRow(values ...any) []string {
	row := make([]string, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			data = []byte(err.Error())
		}
		row[i] = string(data)
	}

	return row
}
