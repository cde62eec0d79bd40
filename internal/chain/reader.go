package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
)

// Reader implements blocks.Reader over raw JSON-RPC. It decodes only the
// header fields the classifier needs, so chains whose headers carry extra or
// non-standard fields still work.
type Reader struct {
	c *rpc.Client
}

var _ blocks.Reader = (*Reader)(nil)

// NewReader creates a Reader on an existing RPC connection.
func NewReader(c *rpc.Client) *Reader {
	return &Reader{c: c}
}

// rpcBlock is the part of an eth_getBlockByNumber result we decode.
type rpcBlock struct {
	Number    *hexutil.Big    `json:"number"`
	GasLimit  *hexutil.Big    `json:"gasLimit"`
	Timestamp *hexutil.Uint64 `json:"timestamp"`
}

// BlockByNumber fetches a block header by height or the latest tag.
func (r *Reader) BlockByNumber(ctx context.Context, ref blocks.BlockRef) (*blocks.RawBlock, error) {
	var head *rpcBlock
	if err := r.c.CallContext(ctx, &head, "eth_getBlockByNumber", toBlockNumArg(ref), false); err != nil {
		return nil, blocks.Transient(ref, err)
	}
	if head == nil {
		return nil, blocks.NotFound(ref)
	}
	if head.Number == nil || head.Timestamp == nil {
		return nil, blocks.Transient(ref, fmt.Errorf("incomplete block header"))
	}

	raw := &blocks.RawBlock{
		Number:    head.Number.ToInt().Uint64(),
		Timestamp: uint64(*head.Timestamp),
	}
	if head.GasLimit != nil {
		raw.GasLimit = head.GasLimit.ToInt()
	}
	return raw, nil
}

// BlockNumber returns the height of the chain tip.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := r.c.CallContext(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, blocks.Transient(blocks.Latest, err)
	}
	return uint64(n), nil
}

func toBlockNumArg(ref blocks.BlockRef) string {
	if ref.IsLatest() {
		return "latest"
	}
	return hexutil.EncodeBig(ref.Number())
}

