package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/throughput"
)

// openReader returns the block reader and a function releasing it. Tests
// replace it with an in-memory reader.
var openReader = func(ctx context.Context) (blocks.Reader, func(), error) {
	client, err := dialChain(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client.Reader(), client.Close, nil
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Classify HyperEVM blocks as FAST (small) or SLOW (big)",
	Long: `Inspect blocks and compare dual-lane with single-lane block timing.

A block is SLOW when its gas limit is above SLOW_GAS_THRESHOLD (default
2,000,000) and FAST otherwise.

Examples:
  hypermint blocks inspect 6130 6131 latest
  hypermint blocks find --bound 200
  hypermint blocks scan --window 50
  hypermint blocks estimate -o json
  hypermint blocks check`,
}

var blocksInspectCmd = &cobra.Command{
	Use:   "inspect <height|latest>...",
	Short: "Fetch and classify specific blocks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBlocksInspect,
}

var blocksFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the most recent SLOW block",
	RunE:  runBlocksFind,
}

var blocksScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Classify a window of recent blocks",
	RunE:  runBlocksScan,
}

var blocksEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate dual-lane versus single-lane elapsed time",
	RunE:  runBlocksEstimate,
}

var blocksCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the full block gas limit report",
	Long: `Inspect two reference blocks, search for a recent SLOW block, classify the
latest block, then scan and estimate the window below it.`,
	RunE: runBlocksCheck,
}

func init() {
	blocksFindCmd.Flags().Int("search-bound", 0, "number of blocks to search back (SEARCH_BOUND)")
	blocksFindCmd.Flags().Uint64("from", 0, "start height (default: chain tip)")

	for _, c := range []*cobra.Command{blocksScanCmd, blocksEstimateCmd} {
		c.Flags().Int("scan-window", 0, "number of blocks to scan (SCAN_WINDOW)")
		c.Flags().Uint64("from", 0, "start height (default: chain tip)")
	}
	blocksEstimateCmd.Flags().Float64("slow-interval-sec", 0, "slow lane interval in seconds (SLOW_INTERVAL_SEC)")
	blocksEstimateCmd.Flags().Float64("fast-interval-sec", 0, "fast lane interval in seconds (FAST_INTERVAL_SEC)")

	blocksCheckCmd.Flags().StringSlice("blocks", []string{"6130", "6131"}, "reference blocks to inspect first")

	for _, c := range []*cobra.Command{blocksInspectCmd, blocksFindCmd, blocksScanCmd, blocksEstimateCmd, blocksCheckCmd} {
		c.Flags().Uint64("slow-gas-threshold", 0, "gas limit above which a block is SLOW (SLOW_GAS_THRESHOLD)")
		blocksCmd.AddCommand(c)
	}
	rootCmd.AddCommand(blocksCmd)
}

// blockRow is one classified block, or the error reading it.
type blockRow struct {
	Ref string `json:"ref"`
	blocks.Sample
	Class blocks.Class `json:"class,omitempty"`
	Label string       `json:"label,omitempty"`
	Error string       `json:"error,omitempty"`
}

func newBlockRow(ref string, s blocks.Sample, c blocks.Class) blockRow {
	return blockRow{Ref: ref, Sample: s, Class: c, Label: c.Label()}
}

type windowReport struct {
	Threshold uint64             `json:"threshold"`
	Blocks    []blockRow         `json:"blocks"`
	Summary   throughput.Summary `json:"summary"`
}

type estimateReport struct {
	windowReport
	Estimate *throughput.Estimate `json:"estimate"`
	Error    string               `json:"error,omitempty"`
}

func startFlag(cmd *cobra.Command) *uint64 {
	if !cmd.Flags().Changed("from") {
		return nil
	}
	h, _ := cmd.Flags().GetUint64("from")
	return &h
}

func runBlocksInspect(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	reader, closeFn, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	c := newClassifier()
	rows := make([]blockRow, 0, len(args))
	failed := 0
	for _, arg := range args {
		ref, err := blocks.ParseRef(strings.ToLower(arg))
		if err != nil {
			return fmt.Errorf("invalid block %q: want a height or \"latest\"", arg)
		}
		s, class, err := c.FetchAndClassify(ctx, reader, ref)
		if err != nil {
			failed++
			rows = append(rows, blockRow{Ref: ref.String(), Error: err.Error()})
			continue
		}
		rows = append(rows, newBlockRow(ref.String(), s, class))
	}

	w := cmd.OutOrStdout()
	if structured() {
		if err := printStructured(w, rows); err != nil {
			return err
		}
	} else {
		for _, r := range rows {
			printBlockDetail(w, r)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d blocks could not be read", failed, len(rows))
	}
	return nil
}

func printBlockDetail(w io.Writer, r blockRow) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s Block %s: %s\n", colorRed("✗"), r.Ref, r.Error)
		fmt.Fprintln(w, strings.Repeat("-", 30))
		return
	}
	fmt.Fprintf(w, "Block Number: %s\n", colorBold(r.Height))
	fmt.Fprintf(w, "Gas Limit:    %d\n", r.GasLimit)
	fmt.Fprintf(w, "Timestamp:    %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "Class:        %s\n", classColor(r.Class))
	fmt.Fprintln(w, strings.Repeat("-", 30))
}

func classColor(c blocks.Class) string {
	if c == blocks.Slow {
		return colorYellow(c.Label())
	}
	return colorCyan(c.Label())
}

func runBlocksFind(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	reader, closeFn, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	bound := cfg.Analysis.SearchBound
	s, found, err := newClassifier().FindFirstMatching(ctx, reader, bound, blocks.IsSlow, startFlag(cmd))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if structured() {
		out := map[string]any{"found": found, "bound": bound}
		if found {
			out["block"] = newBlockRow(strconv.FormatUint(s.Height, 10), s, blocks.Slow)
		}
		return printStructured(w, out)
	}
	printFind(w, s, found, bound)
	return nil
}

func printFind(w io.Writer, s blocks.Sample, found bool, bound int) {
	if !found {
		fmt.Fprintf(w, "%s No SLOW block in the last %d blocks\n", colorYellow("!"), bound)
		return
	}
	fmt.Fprintf(w, "%s SLOW block found: %s (gas limit %d)\n", colorGreen("✓"), colorBold(s.Height), s.GasLimit)
	fmt.Fprintf(w, "  Timestamp: %s\n", s.Timestamp.Format(time.RFC3339))
}

func scanWindow(ctx context.Context, reader blocks.Reader, start *uint64) (windowReport, error) {
	scan, err := newClassifier().ScanRecent(ctx, reader, cfg.Analysis.ScanWindow, start)
	if err != nil {
		return windowReport{}, err
	}
	rows := make([]blockRow, scan.Len())
	for i, s := range scan.Samples {
		rows[i] = newBlockRow(strconv.FormatUint(s.Height, 10), s, scan.ClassAt(i))
	}
	return windowReport{Threshold: scan.Threshold, Blocks: rows, Summary: throughput.Summarize(scan)}, nil
}

func runBlocksScan(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	reader, closeFn, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := scanWindow(ctx, reader, startFlag(cmd))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if structured() {
		return printStructured(w, report)
	}
	printWindow(w, report)
	return nil
}

func printWindow(w io.Writer, report windowReport) {
	table := newTable(w, "Block", "Gas Limit", "Timestamp", "Class")
	for _, r := range report.Blocks {
		table.Append([]string{
			strconv.FormatUint(r.Height, 10),
			strconv.FormatUint(r.GasLimit, 10),
			r.Timestamp.Format(time.RFC3339),
			r.Label,
		})
	}
	table.Render()
	printSummary(w, report.Summary)
}

func printSummary(w io.Writer, s throughput.Summary) {
	fmt.Fprintf(w, "\nLast %d blocks: %d SLOW, %d FAST\n", s.Total, s.Slow, s.Fast)
	if ratio, ok := s.SlowRatio(); ok {
		fmt.Fprintf(w, "Ratio: %.2f%% SLOW\n", ratio*100)
	} else {
		fmt.Fprintln(w, "Ratio: undefined (no blocks)")
	}
}

func buildEstimate(report windowReport) estimateReport {
	out := estimateReport{windowReport: report}
	est, err := throughput.Compute(report.Summary, cfg.Analysis.SlowIntervalSec, cfg.Analysis.FastIntervalSec)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Estimate = &est
	return out
}

func runBlocksEstimate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	reader, closeFn, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := scanWindow(ctx, reader, startFlag(cmd))
	if err != nil {
		return err
	}
	out := buildEstimate(report)

	w := cmd.OutOrStdout()
	if structured() {
		if err := printStructured(w, out); err != nil {
			return err
		}
	} else {
		printSummary(w, out.Summary)
		printEstimate(w, out)
	}
	if out.Estimate == nil {
		return errors.New(out.Error)
	}
	return nil
}

func printEstimate(w io.Writer, out estimateReport) {
	if out.Estimate == nil {
		fmt.Fprintf(w, "\n%s %s\n", colorYellow("!"), out.Error)
		return
	}
	e := out.Estimate
	fmt.Fprintf(w, "\nDual-lane total time:   %g seconds\n", e.DualLaneSeconds)
	fmt.Fprintf(w, "Single-lane total time: %g seconds\n", e.SingleLaneSeconds)
	adv := fmt.Sprintf("%.2f%%", e.AdvantagePct)
	if e.AdvantagePct >= 0 {
		adv = colorGreen(adv)
	} else {
		adv = colorRed(adv)
	}
	fmt.Fprintf(w, "Time advantage:         %s\n", adv)
}

type checkReport struct {
	Reference []blockRow     `json:"reference"`
	Search    map[string]any `json:"search"`
	Latest    blockRow       `json:"latest"`
	Window    estimateReport `json:"window"`
}

func runBlocksCheck(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	reader, closeFn, err := openReader(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	refs, _ := cmd.Flags().GetStringSlice("blocks")
	c := newClassifier()
	report := checkReport{}

	for _, arg := range refs {
		ref, err := blocks.ParseRef(strings.TrimSpace(arg))
		if err != nil {
			return fmt.Errorf("invalid block %q: %w", arg, err)
		}
		s, class, err := c.FetchAndClassify(ctx, reader, ref)
		if err != nil {
			report.Reference = append(report.Reference, blockRow{Ref: ref.String(), Error: err.Error()})
			continue
		}
		report.Reference = append(report.Reference, newBlockRow(ref.String(), s, class))
	}

	bound := cfg.Analysis.SearchBound
	found, ok, err := c.FindFirstMatching(ctx, reader, bound, blocks.IsSlow, nil)
	if err != nil {
		return err
	}
	report.Search = map[string]any{"found": ok, "bound": bound}
	if ok {
		report.Search["block"] = newBlockRow(strconv.FormatUint(found.Height, 10), found, blocks.Slow)
	}

	latest, latestClass, err := c.FetchAndClassify(ctx, reader, blocks.Latest)
	if err != nil {
		return err
	}
	report.Latest = newBlockRow(blocks.Latest.String(), latest, latestClass)

	window, err := scanWindow(ctx, reader, &latest.Height)
	if err != nil {
		return err
	}
	report.Window = buildEstimate(window)

	w := cmd.OutOrStdout()
	if structured() {
		return printStructured(w, report)
	}

	for _, r := range report.Reference {
		printBlockDetail(w, r)
	}
	fmt.Fprintf(w, "Searching the last %d blocks for a SLOW block...\n", bound)
	printFind(w, found, ok, bound)
	fmt.Fprintln(w, strings.Repeat("-", 30))
	fmt.Fprintln(w, "Latest block:")
	printBlockDetail(w, report.Latest)
	fmt.Fprintf(w, "\nAnalysing the last %d blocks...\n", cfg.Analysis.ScanWindow)
	printWindow(w, window)
	printEstimate(w, report.Window)
	return nil
}
