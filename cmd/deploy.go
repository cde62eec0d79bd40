package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aranthus/erc-721-hyperliquid/internal/nft"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Compile and deploy the NFT contract",
	Long: `Deploy the single-image NFT contract, mint the reserve to the deployer and
open the public sale. The deployment record is written to DEPLOYMENT_FILE.

The contract is compiled from CONTRACT_SOURCE with solc unless --artifact (or
ARTIFACT_FILE) points at a compiled JSON artifact.

The deployment needs more gas than a small block allows, so run
"hypermint bigblocks enable" first.

Examples:
  hypermint deploy
  hypermint deploy --artifact artifacts/SingleImageNFT.json --no-sale
  hypermint deploy --reserve 0 --delay 0`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	f := deployCmd.Flags()
	f.String("artifact-file", "", "compiled artifact to deploy instead of compiling (ARTIFACT_FILE)")
	f.Int64("reserve-count", 0, "tokens minted to the deployer after deployment (RESERVE_COUNT)")
	f.Bool("no-sale", false, "leave the public sale closed")
	f.Uint64("gas-limit", nft.DefaultDeployGasLimit, "gas limit for the creation transaction")
	f.Duration("delay", 5*time.Second, "pause before sending so the big blocks reminder can be read")
	rootCmd.AddCommand(deployCmd)
}

func loadContractArtifact(ctx context.Context, w io.Writer) (*nft.Artifact, error) {
	if path := cfg.Token.ArtifactFile; path != "" {
		logger.Info("loading artifact", "path", path)
		return nft.LoadArtifact(path)
	}

	source := cfg.Token.ContractSource
	compiler := nft.NewCompiler(filepath.Dir(source))
	compiler.Solc = cfg.Token.Solc

	logger.Info("compiling contract", "source", source, "contract", cfg.Token.ContractName)
	res, err := compiler.Compile(ctx, filepath.Base(source), cfg.Token.ContractName)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", colorYellow("!"), d.String())
	}
	return res.Artifact, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	art, err := loadContractArtifact(ctx, cmd.ErrOrStderr())
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

	noSale, _ := cmd.Flags().GetBool("no-sale")
	gasLimit, _ := cmd.Flags().GetUint64("gas-limit")
	delay, _ := cmd.Flags().GetDuration("delay")

	if delay > 0 && !structured() {
		fmt.Fprintf(w, "%s This deployment requires big blocks to be enabled for %s\n", colorYellow("!"), s.Address().Hex())
		fmt.Fprintf(w, "  Run \"hypermint bigblocks enable\" first if you have not. Continuing in %s...\n", delay)
	}
	if err := wait(ctx, delay); err != nil {
		return err
	}

	deployer := nft.NewDeployer(client, s, cfg.Token.DeploymentFile, logger)
	res, err := deployer.Deploy(ctx, art, nft.DeployParams{
		Name:         cfg.Token.Name,
		Symbol:       cfg.Token.Symbol,
		BaseURI:      cfg.Token.BaseURI,
		GasLimit:     gasLimit,
		ReserveCount: cfg.Token.ReserveCount,
		OpenSale:     !noSale,
	})
	if err != nil {
		if errors.Is(err, nft.ErrNeedsBigBlocks) && !structured() {
			printHint(w, "The deployment exceeded the block gas limit:", []string{
				"Run: hypermint bigblocks enable",
				"Wait for the next big block (about a minute)",
				"Run: hypermint deploy",
			})
		}
		return err
	}

	if structured() {
		return printStructured(w, res)
	}

	fmt.Fprintf(w, "%s Contract deployed\n\n", colorGreen("✓"))
	fmt.Fprintf(w, "  Address:     %s\n", colorBold(res.Info.Address.Hex()))
	fmt.Fprintf(w, "  Deployer:    %s\n", res.Info.Deployer.Hex())
	fmt.Fprintf(w, "  Transaction: %s\n", res.Info.TxHash.Hex())
	fmt.Fprintf(w, "  Gas price:   %s wei\n", res.GasPrice)
	fmt.Fprintf(w, "  Record:      %s\n", cfg.Token.DeploymentFile)
	if res.ReserveTx != nil {
		fmt.Fprintf(w, "  Reserve:     %d tokens (%s)\n", cfg.Token.ReserveCount, res.ReserveTx.Hex())
	}
	if res.SaleTx != nil {
		fmt.Fprintf(w, "  Public sale: open (%s)\n", res.SaleTx.Hex())
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", colorYellow("!"), warning)
	}
	return nil
}
