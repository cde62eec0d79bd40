package cmd

import (
	"context"
	"fmt"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/chain"
	"github.com/Aranthus/erc-721-hyperliquid/internal/signer"
)

func dialChain(ctx context.Context) (*chain.Client, error) {
	logger.Debug("connecting to RPC", "url", cfg.Chain.RPCURL)
	return chain.Dial(ctx, cfg.Chain.RPCURL)
}

// newSigner loads PRIVATE_KEY for the chain the client is connected to.
func newSigner(ctx context.Context, client *chain.Client) (*signer.LocalSigner, error) {
	chainID, err := client.ChainIDOrDefault(ctx, cfg.Chain.ChainID)
	if err != nil {
		return nil, err
	}
	s, err := signer.NewLocalSigner(cfg.Chain.PrivateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w (set PRIVATE_KEY in %s)", err, cfgFile)
	}
	logger.Info("using account", "address", s.Address().Hex(), "chain_id", chainID.String())
	return s, nil
}

func newClassifier() *blocks.Classifier {
	return blocks.NewClassifier(cfg.Analysis.SlowGasThreshold)
}
