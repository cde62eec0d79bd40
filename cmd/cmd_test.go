package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
)

type memReader struct {
	tip uint64
	gas map[uint64]uint64
}

func (m *memReader) BlockByNumber(ctx context.Context, ref blocks.BlockRef) (*blocks.RawBlock, error) {
	h := m.tip
	if !ref.IsLatest() {
		h = ref.Number().Uint64()
	}
	g, ok := m.gas[h]
	if !ok {
		return nil, blocks.NotFound(ref)
	}
	return &blocks.RawBlock{Number: h, GasLimit: new(big.Int).SetUint64(g), Timestamp: 1_700_000_000 + h}, nil
}

func (m *memReader) BlockNumber(ctx context.Context) (uint64, error) {
	return m.tip, nil
}

func fiveBlocks() *memReader {
	return &memReader{tip: 10, gas: map[uint64]uint64{
		10: 30_000_000, 9: 30_000_000, 8: 2_000_000, 7: 2_000_000, 6: 2_000_000,
	}}
}

// resetFlags restores every flag to its default so runs do not leak into each
// other through the package-level commands.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			def := strings.Trim(f.DefValue, "[]")
			vals := []string{}
			if def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against reader with a dotenv file built from env.
func run(t *testing.T, reader blocks.Reader, env string, args ...string) (string, error) {
	t.Helper()

	prev := openReader
	openReader = func(ctx context.Context) (blocks.Reader, func(), error) {
		return reader, func() {}, nil
	}
	t.Cleanup(func() { openReader = prev })

	path := filepath.Join(t.TempDir(), ".env.nft")
	require.NoError(t, os.WriteFile(path, []byte(env), 0o600))

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", path, "--no-color"}, args...))
	rootCmd.SetContext(context.Background())

	err := rootCmd.Execute()
	return out.String(), err
}

const smallWindow = "SCAN_WINDOW=5\nSEARCH_BOUND=3\nLOG_LEVEL=error\n"

func TestBlocksInspect(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "inspect", "10", "LATEST", "8", "-o", "json")
	require.NoError(t, err)

	var rows []struct {
		Ref    string `json:"ref"`
		Height uint64 `json:"height"`
		Class  string `json:"class"`
		Label  string `json:"label"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "10", rows[0].Ref)
	assert.Equal(t, "SLOW", rows[0].Class)
	assert.Equal(t, "latest", rows[1].Ref)
	assert.Equal(t, uint64(10), rows[1].Height)
	assert.Equal(t, "FAST", rows[2].Class)
	assert.Equal(t, "SMALL (Fast) Block", rows[2].Label)
}

func TestBlocksInspect_Text(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "inspect", "9", "999", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 blocks could not be read")
	assert.Contains(t, out, "Block Number: 9")
	assert.Contains(t, out, "Gas Limit:    30000000")
	assert.Contains(t, out, "BIG (Slow) Block")
	assert.Contains(t, out, "read block 999: blocks: block not found")
}

func TestBlocksInspect_InvalidRef(t *testing.T) {
	_, err := run(t, fiveBlocks(), smallWindow, "blocks", "inspect", "tip", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid block "tip"`)
}

func TestBlocksScan(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "scan", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "30000000")
	assert.Contains(t, out, "SMALL (Fast) Block")
	assert.Contains(t, out, "Last 5 blocks: 2 SLOW, 3 FAST")
	assert.Contains(t, out, "Ratio: 40.00% SLOW")
}

func TestBlocksScan_WindowFlag(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "scan", "--scan-window", "2", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Blocks  []json.RawMessage `json:"blocks"`
		Summary struct {
			Slow  int `json:"slowCount"`
			Total int `json:"total"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Blocks, 2)
	assert.Equal(t, 2, report.Summary.Slow)
	assert.Equal(t, 2, report.Summary.Total)
}

func TestBlocksEstimate(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "estimate", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Estimate struct {
			Dual      float64 `json:"dualLaneSeconds"`
			Single    float64 `json:"singleLaneSeconds"`
			Advantage float64 `json:"advantagePct"`
		} `json:"estimate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 126.0, report.Estimate.Dual)
	assert.Equal(t, 155.0, report.Estimate.Single)
	assert.InDelta(t, 18.71, report.Estimate.Advantage, 0.01)
}

func TestBlocksEstimate_Text(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "estimate", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Dual-lane total time:   126 seconds")
	assert.Contains(t, out, "Single-lane total time: 155 seconds")
	assert.Contains(t, out, "Time advantage:         18.71%")
}

func TestBlocksEstimate_ReadFailure(t *testing.T) {
	out, err := run(t, &memReader{tip: 5, gas: map[uint64]uint64{}}, smallWindow, "blocks", "estimate", "-o", "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, blocks.ErrBlockNotFound))
	assert.Empty(t, out)
}

func TestBlocksFind(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "find", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "SLOW block found: 10")

	out, err = run(t, fiveBlocks(), smallWindow, "blocks", "find", "--from", "8", "-o", "yaml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["found"])
	assert.Equal(t, 3, got["bound"])
}

func TestBlocksCheck(t *testing.T) {
	out, err := run(t, fiveBlocks(), smallWindow, "blocks", "check", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Reference []struct {
			Ref   string `json:"ref"`
			Error string `json:"error"`
		} `json:"reference"`
		Search struct {
			Found bool `json:"found"`
		} `json:"search"`
		Latest struct {
			Height uint64 `json:"height"`
			Class  string `json:"class"`
		} `json:"latest"`
		Window struct {
			Summary struct {
				Total int `json:"total"`
			} `json:"summary"`
			Estimate *struct {
				Dual float64 `json:"dualLaneSeconds"`
			} `json:"estimate"`
		} `json:"window"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	require.Len(t, report.Reference, 2)
	assert.Equal(t, "6130", report.Reference[0].Ref)
	assert.Contains(t, report.Reference[0].Error, "block not found")
	assert.True(t, report.Search.Found)
	assert.Equal(t, uint64(10), report.Latest.Height)
	assert.Equal(t, "SLOW", report.Latest.Class)
	assert.Equal(t, 5, report.Window.Summary.Total)
	require.NotNil(t, report.Window.Estimate)
	assert.Equal(t, 126.0, report.Window.Estimate.Dual)
}

func TestRoot_InvalidOutput(t *testing.T) {
	_, err := run(t, fiveBlocks(), smallWindow, "blocks", "scan", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, err := run(t, fiveBlocks(), "SCAN_WINDOW=0\n", "blocks", "scan", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.001", formatEther(big.NewInt(1_000_000_000_000_000)))
	assert.Equal(t, "0.003", formatEther(big.NewInt(3_000_000_000_000_000)))
	assert.Equal(t, "0", formatEther(nil))
}
