// Package chain connects to an EVM JSON-RPC endpoint for block reads and
// transaction submission.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client bundles a typed ethclient and the raw RPC connection underneath it.
type Client struct {
	*ethclient.Client
	rpc *rpc.Client
}

// Dial connects to an Ethereum RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to RPC %s: %w", rpcURL, err)
	}
	return NewClient(c), nil
}

// NewClient wraps an existing RPC connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{Client: ethclient.NewClient(c), rpc: c}
}

// Reader returns a block reader sharing this connection.
func (c *Client) Reader() *Reader {
	return NewReader(c.rpc)
}

// CallArgs are the fields of an unsigned eth_sendTransaction request.
type CallArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to,omitempty"`
	Gas  *hexutil.Uint64 `json:"gas,omitempty"`
	Data hexutil.Bytes   `json:"data,omitempty"`
}

// SendUnsignedTransaction asks the node to sign and send a transaction with
// eth_sendTransaction. Public endpoints usually refuse this; it only works
// against nodes that hold the sender's key.
func (c *Client) SendUnsignedTransaction(ctx context.Context, args CallArgs) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// ChainIDOrDefault returns the configured chain ID when non-zero and asks the
// node otherwise.
func (c *Client) ChainIDOrDefault(ctx context.Context, configured uint64) (*big.Int, error) {
	if configured != 0 {
		return new(big.Int).SetUint64(configured), nil
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}
	return id, nil
}
