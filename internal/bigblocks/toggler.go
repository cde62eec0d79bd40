package bigblocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
)

// ErrManualIntervention is returned when no strategy could toggle big blocks.
var ErrManualIntervention = errors.New("bigblocks: manual intervention required")

// ManualInstructions tell the operator how to toggle big blocks by hand.
var ManualInstructions = []string{
	"Go to https://app.hyperliquid.xyz/",
	"Connect your wallet",
	"Open settings and enable Big Blocks",
	"Run the deploy command again",
}

// Receipt describes a successful toggle.
type Receipt struct {
	TxHash common.Hash `json:"txHash,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// Strategy is one way of submitting the toggle.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, enable bool) (*Receipt, error)
}

// Attempt records the result of one strategy.
type Attempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`
}

// Outcome is the result of a Toggle call.
type Outcome struct {
	Enabled        bool      `json:"enabled"`
	Strategy       string    `json:"strategy,omitempty"`
	Receipt        *Receipt  `json:"receipt,omitempty"`
	Attempts       []Attempt `json:"attempts"`
	ManualRequired bool      `json:"manualRequired"`
	Instructions   []string  `json:"instructions,omitempty"`
}

// Toggler tries its strategies in order until one succeeds.
type Toggler struct {
	Strategies []Strategy
	Logger     *slog.Logger
}

// Toggle enables or disables big blocks for the configured account. When every
// strategy fails the returned Outcome carries manual instructions and the error
// wraps ErrManualIntervention.
func (t *Toggler) Toggle(ctx context.Context, enable bool) (*Outcome, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := &Outcome{Enabled: enable, Attempts: make([]Attempt, 0, len(t.Strategies))}
	var errs []error

	for _, s := range t.Strategies {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		logger.Info("toggling big blocks", slog.String("strategy", s.Name()), slog.Bool("enable", enable))
		receipt, err := s.Apply(ctx, enable)
		if err != nil {
			logger.Warn("strategy failed", slog.String("strategy", s.Name()), slog.String("error", err.Error()))
			out.Attempts = append(out.Attempts, Attempt{Strategy: s.Name(), Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		out.Attempts = append(out.Attempts, Attempt{Strategy: s.Name()})
		out.Strategy = s.Name()
		out.Receipt = receipt
		logger.Info("big blocks toggled", slog.String("strategy", s.Name()))
		return out, nil
	}

	out.ManualRequired = true
	out.Instructions = ManualInstructions
	return out, fmt.Errorf("%w: %w", ErrManualIntervention, errors.Join(errs...))
}
