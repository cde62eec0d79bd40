package blocks

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// Predicate selects samples during a scan.
type Predicate func(Sample, Class) bool

// IsSlow matches big (slow) blocks.
func IsSlow(_ Sample, c Class) bool { return c == Slow }

// IsFast matches small (fast) blocks.
func IsFast(_ Sample, c Class) bool { return c == Fast }

// Classifier labels blocks against a fixed gas threshold. The zero value uses
// a threshold of 0, so every non-empty block is slow; use NewClassifier.
//
// Classifier holds no mutable state and is safe for concurrent use.
type Classifier struct {
	threshold uint64
}

// NewClassifier creates a classifier for the given slow-block gas threshold.
func NewClassifier(threshold uint64) *Classifier {
	return &Classifier{threshold: threshold}
}

// Threshold returns the slow-block gas threshold.
func (c *Classifier) Threshold() uint64 {
	return c.threshold
}

// Classify returns Slow if gasLimit exceeds the threshold and Fast otherwise.
// A gas limit exactly at the threshold is Fast.
func (c *Classifier) Classify(gasLimit *big.Int) (Class, error) {
	g, err := validGasLimit(gasLimit)
	if err != nil {
		return "", err
	}
	return classify(g, c.threshold), nil
}

// ClassOf classifies an already validated sample.
func (c *Classifier) ClassOf(s Sample) Class {
	return classify(s.GasLimit, c.threshold)
}

// FetchAndClassify reads a single block and classifies it. It does not retry.
func (c *Classifier) FetchAndClassify(ctx context.Context, r Reader, ref BlockRef) (Sample, Class, error) {
	raw, err := r.BlockByNumber(ctx, ref)
	if err != nil {
		return Sample{}, "", classifyReadError(ref, err)
	}
	if raw == nil {
		return Sample{}, "", NotFound(ref)
	}

	g, err := validGasLimit(raw.GasLimit)
	if err != nil {
		return Sample{}, "", fmt.Errorf("block %d: %w", raw.Number, err)
	}

	s := Sample{
		Height:    raw.Number,
		GasLimit:  g,
		Timestamp: time.Unix(int64(raw.Timestamp), 0).UTC(),
	}
	return s, classify(g, c.threshold), nil
}

// ScanRecent classifies up to count blocks walking backwards from start, or
// from the chain tip when start is nil. The walk stops without error at height
// 0 and fails on the first read error; the partial window is dropped.
func (c *Classifier) ScanRecent(ctx context.Context, r Reader, count int, start *uint64) (Window, error) {
	from, err := c.startHeight(ctx, r, start)
	if err != nil {
		return Window{}, err
	}

	w := Window{Threshold: c.threshold, Samples: make([]Sample, 0, max(count, 0))}
	for h := range Descending(from, count) {
		if err := ctx.Err(); err != nil {
			return Window{}, err
		}
		s, _, err := c.FetchAndClassify(ctx, r, Height(h))
		if err != nil {
			return Window{}, err
		}
		w.Samples = append(w.Samples, s)
	}
	return w, nil
}

// FindFirstMatching walks the same heights as ScanRecent and returns the first
// sample satisfying pred. found is false when no sample within the bound
// matches.
func (c *Classifier) FindFirstMatching(ctx context.Context, r Reader, count int, pred Predicate, start *uint64) (s Sample, found bool, err error) {
	from, err := c.startHeight(ctx, r, start)
	if err != nil {
		return Sample{}, false, err
	}

	for h := range Descending(from, count) {
		if err := ctx.Err(); err != nil {
			return Sample{}, false, err
		}
		s, class, err := c.FetchAndClassify(ctx, r, Height(h))
		if err != nil {
			return Sample{}, false, err
		}
		if pred(s, class) {
			return s, true, nil
		}
	}
	return Sample{}, false, nil
}

func (c *Classifier) startHeight(ctx context.Context, r Reader, start *uint64) (uint64, error) {
	if start != nil {
		return *start, nil
	}
	tip, err := r.BlockNumber(ctx)
	if err != nil {
		return 0, classifyReadError(Latest, err)
	}
	return tip, nil
}

func validGasLimit(g *big.Int) (uint64, error) {
	switch {
	case g == nil:
		return 0, fmt.Errorf("%w: missing gas limit", ErrInvalidSample)
	case g.Sign() < 0:
		return 0, fmt.Errorf("%w: negative gas limit %s", ErrInvalidSample, g)
	case !g.IsUint64():
		return 0, fmt.Errorf("%w: gas limit %s out of range", ErrInvalidSample, g)
	}
	return g.Uint64(), nil
}
