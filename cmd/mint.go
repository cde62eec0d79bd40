package cmd

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"

	"github.com/Aranthus/erc-721-hyperliquid/internal/nft"
)

var mintCmd = &cobra.Command{
	Use:   "mint [amount]",
	Short: "Mint tokens from the deployed contract",
	Long: `Mint tokens at the public price from the contract in DEPLOYMENT_FILE. The
public sale is opened first if it is still closed.

Examples:
  hypermint mint
  hypermint mint 3 -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMint,
}

func init() {
	rootCmd.AddCommand(mintCmd)
}

func runMint(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	amount := uint64(1)
	if len(args) == 1 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("invalid amount %q: %w", args[0], nft.ErrInvalidAmount)
		}
		amount = n
	}

	info, err := nft.LoadDeploymentInfo(cfg.Token.DeploymentFile)
	if err != nil {
		return err
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

	minter, err := nft.NewMinter(client, s, info, logger)
	if err != nil {
		return err
	}

	res, err := minter.Mint(ctx, amount)
	if errors.Is(err, nft.ErrInsufficientSupply) && res != nil && !structured() {
		fmt.Fprintf(w, "%s Only %s tokens left, requested %d\n", colorRed("✗"), res.Available, amount)
	}
	if err != nil {
		return err
	}

	if structured() {
		return printStructured(w, res)
	}

	fmt.Fprintf(w, "%s Minted %d token(s) from %s\n\n", colorGreen("✓"), res.Amount, info.Address.Hex())
	if res.SaleOpened {
		fmt.Fprintln(w, "  Public sale was closed and has been opened")
	}
	fmt.Fprintf(w, "  Transaction: %s\n", res.TxHash.Hex())
	fmt.Fprintf(w, "  Price:       %s ETH each\n", formatEther(res.Price))
	fmt.Fprintf(w, "  Total:       %s ETH\n", formatEther(res.TotalCost))
	fmt.Fprintf(w, "  Gas limit:   %d\n", res.GasLimit)
	fmt.Fprintf(w, "  Balance:     %s\n", res.Balance)
	if res.TokenURI != "" {
		fmt.Fprintf(w, "  Token URI:   %s\n", res.TokenURI)
	}
	return nil
}

// formatEther renders a wei amount in ether without trailing zeros.
func formatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return f.Text('f', -1)
}
