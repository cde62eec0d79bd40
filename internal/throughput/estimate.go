// Package throughput compares elapsed time under dual-lane and single-lane
// block production for a classified window of blocks.
package throughput

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
)

// Default lane intervals, in seconds.
const (
	DefaultSlowIntervalSec = 60.0
	DefaultFastIntervalSec = 2.0
)

// ErrDegenerateEstimate is returned when the single-lane duration is not
// positive, e.g. for an empty window.
var ErrDegenerateEstimate = errors.New("throughput: degenerate estimate")

// Summary counts fast and slow blocks in a window.
type Summary struct {
	Fast  int `json:"fastCount"`
	Slow  int `json:"slowCount"`
	Total int `json:"total"`
}

// SlowRatio returns the share of slow blocks. ok is false for an empty window,
// where the ratio is undefined.
func (s Summary) SlowRatio() (ratio float64, ok bool) {
	if s.Total == 0 {
		return 0, false
	}
	return float64(s.Slow) / float64(s.Total), true
}

// MarshalJSON renders an undefined ratio as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	out := struct {
		plain
		SlowRatio *float64 `json:"slowRatio"`
	}{plain: plain(s)}
	if r, ok := s.SlowRatio(); ok {
		out.SlowRatio = &r
	}
	return json.Marshal(out)
}

// Summarize counts the classes in w.
func Summarize(w blocks.Window) Summary {
	var s Summary
	for i := range w.Samples {
		if w.ClassAt(i) == blocks.Slow {
			s.Slow++
		} else {
			s.Fast++
		}
	}
	s.Total = s.Fast + s.Slow
	return s
}

// Estimate holds elapsed-time estimates for one summary.
type Estimate struct {
	SlowIntervalSec   float64 `json:"slowIntervalSec"`
	FastIntervalSec   float64 `json:"fastIntervalSec"`
	DualLaneSeconds   float64 `json:"dualLaneSeconds"`
	SingleLaneSeconds float64 `json:"singleLaneSeconds"`
	AdvantagePct      float64 `json:"advantagePct"`
}

// Compute estimates elapsed time when every block is charged its own lane's
// interval (dual lane) versus the mean of the two intervals (single lane).
func Compute(s Summary, slowIntervalSec, fastIntervalSec float64) (Estimate, error) {
	dual := float64(s.Slow)*slowIntervalSec + float64(s.Fast)*fastIntervalSec
	single := float64(s.Slow+s.Fast) * (slowIntervalSec + fastIntervalSec) / 2

	if !(single > 0) {
		return Estimate{}, fmt.Errorf("%w: single-lane duration %v over %d blocks", ErrDegenerateEstimate, single, s.Slow+s.Fast)
	}

	return Estimate{
		SlowIntervalSec:   slowIntervalSec,
		FastIntervalSec:   fastIntervalSec,
		DualLaneSeconds:   dual,
		SingleLaneSeconds: single,
		AdvantagePct:      (single - dual) / single * 100,
	}, nil
}
