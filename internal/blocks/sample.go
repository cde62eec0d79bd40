// Package blocks classifies chain blocks as fast (small) or slow (big) by their
// gas limit and scans recent heights for them.
package blocks

import (
	"context"
	"math/big"
	"strconv"
	"time"
)

// DefaultSlowGasThreshold is the gas limit above which a block counts as slow.
// It is a configurable default, not a protocol constant.
const DefaultSlowGasThreshold uint64 = 2_000_000

// Class labels which production lane a block most likely came from.
type Class string

const (
	Fast Class = "FAST"
	Slow Class = "SLOW"
)

// Label returns the console wording used for a class.
func (c Class) Label() string {
	if c == Slow {
		return "BIG (Slow) Block"
	}
	return "SMALL (Fast) Block"
}

// BlockRef addresses a block either by height or as the chain tip.
type BlockRef struct {
	height uint64
	latest bool
}

// Latest refers to the most recent block.
var Latest = BlockRef{latest: true}

// Height refers to the block at h.
func Height(h uint64) BlockRef {
	return BlockRef{height: h}
}

// ParseRef accepts a decimal height or the "latest" tag.
func ParseRef(s string) (BlockRef, error) {
	if s == "latest" {
		return Latest, nil
	}
	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return BlockRef{}, err
	}
	return Height(h), nil
}

// IsLatest reports whether the ref is the latest tag.
func (r BlockRef) IsLatest() bool {
	return r.latest
}

// Number returns the height, or nil for the latest tag.
func (r BlockRef) Number() *big.Int {
	if r.latest {
		return nil
	}
	return new(big.Int).SetUint64(r.height)
}

// String implements fmt.Stringer.
func (r BlockRef) String() string {
	if r.latest {
		return "latest"
	}
	return strconv.FormatUint(r.height, 10)
}

// RawBlock is the subset of a block the reader hands back. GasLimit is kept as
// a big integer because it comes straight off the wire and has not been
// validated yet.
type RawBlock struct {
	Number    uint64
	GasLimit  *big.Int
	Timestamp uint64 // unix seconds
}

// Reader is read-only access to chain blocks.
//
// BlockByNumber returns an error matching ErrBlockNotFound when the chain has no
// such block, and one matching ErrTransientRead for network or RPC failures.
type Reader interface {
	BlockByNumber(ctx context.Context, ref BlockRef) (*RawBlock, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Sample is one observed block. It is immutable once built.
type Sample struct {
	Height    uint64    `json:"height"`
	GasLimit  uint64    `json:"gasLimit"`
	Timestamp time.Time `json:"timestamp"`
}

// Window is a run of samples in strictly descending height order, together
// with the threshold used to classify them.
type Window struct {
	Threshold uint64   `json:"threshold"`
	Samples   []Sample `json:"samples"`
}

// Len returns the number of samples in the window.
func (w Window) Len() int {
	return len(w.Samples)
}

// ClassAt returns the class of the i-th sample.
func (w Window) ClassAt(i int) Class {
	return classify(w.Samples[i].GasLimit, w.Threshold)
}

func classify(gasLimit, threshold uint64) Class {
	if gasLimit > threshold {
		return Slow
	}
	return Fast
}
