package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Aranthus/erc-721-hyperliquid/internal/bigblocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/chain"
	"github.com/Aranthus/erc-721-hyperliquid/internal/signer"
)

var bigblocksCmd = &cobra.Command{
	Use:   "bigblocks",
	Short: "Opt the account in or out of big (slow) blocks",
	Long: `Contract deployments above the small block gas limit only fit in big blocks.
The account has to opt in before deploying.

Strategies are tried in order until one succeeds:
  exchange  sign an evmUserModify action and post it to the exchange API
  node      ask the RPC node to send the action to the L1 action precompile
  signed    sign a transaction to the precompile locally and broadcast it

Examples:
  hypermint bigblocks enable
  hypermint bigblocks enable --strategy exchange
  hypermint bigblocks disable`,
}

var bigblocksEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable big blocks for the configured account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(cmd, true)
	},
}

var bigblocksDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Return the account to small blocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(cmd, false)
	},
}

func init() {
	for _, c := range []*cobra.Command{bigblocksEnableCmd, bigblocksDisableCmd} {
		c.Flags().StringSlice("strategy", nil, "strategies to try, in order (default BIGBLOCKS_STRATEGIES)")
		bigblocksCmd.AddCommand(c)
	}
	rootCmd.AddCommand(bigblocksCmd)
}

func newStrategies(client *chain.Client, s *signer.LocalSigner) []bigblocks.Strategy {
	return []bigblocks.Strategy{
		&bigblocks.ExchangeAction{URL: cfg.ExchangeURL(), Mainnet: cfg.IsMainnet(), Signer: s},
		&bigblocks.NodeTransaction{Node: client, From: s.Address()},
		&bigblocks.SignedTransaction{Backend: client, Signer: s},
	}
}

func runToggle(cmd *cobra.Command, enable bool) error {
	ctx := commandContext(cmd)

	names, _ := cmd.Flags().GetStringSlice("strategy")
	if len(names) == 0 {
		names = cfg.StrategyNames()
	}

	client, err := dialChain(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	s, err := newSigner(ctx, client)
	if err != nil {
		return err
	}

	strategies, err := bigblocks.Select(newStrategies(client, s), names)
	if err != nil {
		return err
	}

	toggler := &bigblocks.Toggler{Strategies: strategies, Logger: logger}
	out, err := toggler.Toggle(ctx, enable)

	w := cmd.OutOrStdout()
	if structured() && out != nil {
		if perr := printStructured(w, out); perr != nil {
			return perr
		}
	} else if out != nil {
		printOutcome(w, out)
	}

	if errors.Is(err, bigblocks.ErrManualIntervention) {
		if !structured() {
			printHint(w, "Enable big blocks manually:", out.Instructions)
		}
		return bigblocks.ErrManualIntervention
	}
	return err
}

func printOutcome(w io.Writer, out *bigblocks.Outcome) {
	for _, a := range out.Attempts {
		if a.Error != "" {
			fmt.Fprintf(w, "%s %-9s %s\n", colorRed("✗"), a.Strategy, a.Error)
			continue
		}
		fmt.Fprintf(w, "%s %-9s ok\n", colorGreen("✓"), a.Strategy)
	}
	if out.ManualRequired {
		return
	}

	state := "disabled"
	if out.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "\nBig blocks %s via %s\n", colorBold(state), out.Strategy)
	if out.Receipt != nil {
		if out.Receipt.TxHash != (common.Hash{}) {
			fmt.Fprintf(w, "Transaction: %s\n", out.Receipt.TxHash.Hex())
		}
		if out.Receipt.Detail != "" {
			fmt.Fprintf(w, "Response:    %s\n", out.Receipt.Detail)
		}
	}
}
