package throughput

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
)

func window(gasLimits ...uint64) blocks.Window {
	w := blocks.Window{Threshold: blocks.DefaultSlowGasThreshold}
	h := uint64(len(gasLimits))
	for _, g := range gasLimits {
		w.Samples = append(w.Samples, blocks.Sample{Height: h, GasLimit: g})
		h--
	}
	return w
}

func TestSummarize(t *testing.T) {
	s := Summarize(window(30_000_000, 30_000_000, 2_000_000, 1_000, 0))

	assert.Equal(t, 2, s.Slow)
	assert.Equal(t, 3, s.Fast)
	assert.Equal(t, 5, s.Total)

	ratio, ok := s.SlowRatio()
	require.True(t, ok)
	assert.InDelta(t, 0.4, ratio, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(blocks.Window{})

	assert.Zero(t, s.Fast)
	assert.Zero(t, s.Slow)
	assert.Zero(t, s.Total)

	_, ok := s.SlowRatio()
	assert.False(t, ok, "ratio must be undefined for an empty window")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fastCount":0,"slowCount":0,"total":0,"slowRatio":null}`, string(data))
}

func TestSummary_JSONWithRatio(t *testing.T) {
	data, err := json.Marshal(Summary{Fast: 3, Slow: 1, Total: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fastCount":3,"slowCount":1,"total":4,"slowRatio":0.25}`, string(data))
}

func TestCompute(t *testing.T) {
	s := Summarize(window(30_000_000, 30_000_000, 1, 1, 1))

	est, err := Compute(s, DefaultSlowIntervalSec, DefaultFastIntervalSec)
	require.NoError(t, err)

	assert.Equal(t, 126.0, est.DualLaneSeconds)
	assert.Equal(t, 155.0, est.SingleLaneSeconds)
	assert.InDelta(t, 18.71, est.AdvantagePct, 0.005)
	assert.Equal(t, 60.0, est.SlowIntervalSec)
	assert.Equal(t, 2.0, est.FastIntervalSec)
}

func TestCompute_AllSlowIsSlowerThanSingleLane(t *testing.T) {
	est, err := Compute(Summary{Slow: 4, Total: 4}, 60, 2)
	require.NoError(t, err)
	assert.Equal(t, 240.0, est.DualLaneSeconds)
	assert.Equal(t, 124.0, est.SingleLaneSeconds)
	assert.Less(t, est.AdvantagePct, 0.0)
}

func TestCompute_Degenerate(t *testing.T) {
	tests := []struct {
		name       string
		summary    Summary
		slow, fast float64
	}{
		{name: "empty window", summary: Summary{}, slow: 60, fast: 2},
		{name: "zero intervals", summary: Summary{Fast: 3, Total: 3}, slow: 0, fast: 0},
		{name: "negative intervals", summary: Summary{Fast: 3, Total: 3}, slow: -5, fast: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.summary, tt.slow, tt.fast)
			assert.ErrorIs(t, err, ErrDegenerateEstimate)
		})
	}
}
