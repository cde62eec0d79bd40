package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aranthus/erc-721-hyperliquid/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mint page and the block analysis API",
	Long: `Serve PUBLIC_DIR together with:
  GET /api/contract-info       address and ABI of the deployed contract
  GET /api/blocks/{ref}        classify one block (height or "latest")
  GET /api/blocks/analysis     classify a window and estimate throughput
  GET /health, /ready, /metrics

Examples:
  hypermint serve
  hypermint serve --port 8080 --cors-origin https://mint.example.com`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "listen port (PORT)")
	f.String("host", "", "listen host (HOST)")
	f.String("public-dir", "", "directory with the mint page (PUBLIC_DIR)")
	f.StringSlice("cors-origin", nil, "allowed CORS origins (default: localhost)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := dialChain(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	origins, _ := cmd.Flags().GetStringSlice("cors-origin")

	srv := server.New(server.Options{
		Reader:          client.Reader(),
		Classifier:      newClassifier(),
		SlowIntervalSec: cfg.Analysis.SlowIntervalSec,
		FastIntervalSec: cfg.Analysis.FastIntervalSec,
		Window:          cfg.Analysis.ScanWindow,
		DeploymentFile:  cfg.Token.DeploymentFile,
		PublicDir:       cfg.Server.PublicDir,
		CORSOrigins:     origins,
		Logger:          logger,
	})

	logger.Info("serving", "addr", cfg.Addr(), "public_dir", cfg.Server.PublicDir, "rpc_url", cfg.Chain.RPCURL)
	return srv.Run(ctx, cfg.Addr())
}
