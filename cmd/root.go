// Package cmd implements the hypermint command line.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aranthus/erc-721-hyperliquid/internal/config"
	"github.com/Aranthus/erc-721-hyperliquid/internal/logging"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	cfgFile      string
	outputFormat string
	noColor      bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hypermint",
	Short: "Deploy, mint and analyse NFTs on HyperEVM",
	Long: `hypermint manages a single-image NFT contract on HyperEVM and inspects the
chain's dual block design.

HyperEVM produces small (fast) blocks every few seconds and big (slow) blocks
about once a minute. Large deployments only fit in big blocks, so the account
must opt into them first.

Settings are read from .env.nft, then the environment, then flags.

Examples:
  # Classify the latest block
  hypermint blocks inspect latest

  # Enable big blocks, deploy, then mint two tokens
  hypermint bigblocks enable
  hypermint deploy
  hypermint mint 2

  # Serve the mint page
  hypermint serve`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", config.DefaultFile, "dotenv file with settings")
	pf.StringVarP(&outputFormat, "output", "o", outputText, "output format: text, json or yaml")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.String("rpc-url", "", "HyperEVM JSON-RPC endpoint (RPC_URL)")
	pf.String("log-level", "", "log level: debug, info, warn, error (LOG_LEVEL)")
	pf.String("log-format", "", "log format: text or json (LOG_FORMAT)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
	if noColor {
		color.NoColor = true
	}

	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var (
	colorGreen  = color.New(color.FgGreen).SprintFunc()
	colorRed    = color.New(color.FgRed).SprintFunc()
	colorYellow = color.New(color.FgYellow).SprintFunc()
	colorCyan   = color.New(color.FgCyan).SprintFunc()
	colorBold   = color.New(color.Bold).SprintFunc()
)

func structured() bool {
	return outputFormat == outputJSON || outputFormat == outputYAML
}

// printStructured writes v as JSON or YAML depending on --output.
func printStructured(w io.Writer, v any) error {
	if outputFormat == outputYAML {
		// Round-trip through JSON so field names and custom marshalers match
		// the JSON output.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", colorRed("✗"), err)
}

func printHint(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "\n%s\n", colorYellow(title))
	for i, l := range lines {
		fmt.Fprintf(w, "  %d. %s\n", i+1, l)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
