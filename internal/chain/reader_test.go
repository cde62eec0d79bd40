package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
)

// fakeEth serves eth_getBlockByNumber and eth_blockNumber from memory.
type fakeEth struct {
	tip       uint64
	gasLimits map[uint64]uint64
	fail      bool
}

func (f *fakeEth) GetBlockByNumber(number rpc.BlockNumber, full bool) (map[string]interface{}, error) {
	if f.fail {
		return nil, errors.New("upstream unavailable")
	}
	h := f.tip
	if number >= 0 {
		h = uint64(number)
	}
	gas, ok := f.gasLimits[h]
	if !ok {
		return nil, nil
	}
	return map[string]interface{}{
		"number":    hexutil.Uint64(h),
		"gasLimit":  hexutil.Uint64(gas),
		"timestamp": hexutil.Uint64(1_700_000_000 + h),
		"hash":      "0x00",
		"extraData": "0x",
	}, nil
}

func (f *fakeEth) BlockNumber() (hexutil.Uint64, error) {
	if f.fail {
		return 0, errors.New("upstream unavailable")
	}
	return hexutil.Uint64(f.tip), nil
}

func newTestReader(t *testing.T, svc *fakeEth) *Reader {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return NewReader(client)
}

func TestReader_BlockByNumber(t *testing.T) {
	r := newTestReader(t, &fakeEth{tip: 6131, gasLimits: map[uint64]uint64{6130: 30_000_000, 6131: 2_000_000}})

	raw, err := r.BlockByNumber(context.Background(), blocks.Height(6130))
	require.NoError(t, err)
	assert.Equal(t, uint64(6130), raw.Number)
	assert.Equal(t, int64(30_000_000), raw.GasLimit.Int64())
	assert.Equal(t, uint64(1_700_006_130), raw.Timestamp)

	raw, err = r.BlockByNumber(context.Background(), blocks.Latest)
	require.NoError(t, err)
	assert.Equal(t, uint64(6131), raw.Number)
}

func TestReader_BlockByNumber_NotFound(t *testing.T) {
	r := newTestReader(t, &fakeEth{tip: 10, gasLimits: map[uint64]uint64{}})

	_, err := r.BlockByNumber(context.Background(), blocks.Height(999))
	assert.ErrorIs(t, err, blocks.ErrBlockNotFound)
}

func TestReader_TransientFailure(t *testing.T) {
	r := newTestReader(t, &fakeEth{fail: true})

	_, err := r.BlockByNumber(context.Background(), blocks.Height(1))
	assert.ErrorIs(t, err, blocks.ErrTransientRead)

	_, err = r.BlockNumber(context.Background())
	assert.ErrorIs(t, err, blocks.ErrTransientRead)
}

func TestReader_WithClassifier(t *testing.T) {
	gas := map[uint64]uint64{}
	for h := uint64(1); h <= 40; h++ {
		gas[h] = 2_000_000
	}
	gas[37] = 30_000_000
	r := newTestReader(t, &fakeEth{tip: 40, gasLimits: gas})
	c := blocks.NewClassifier(blocks.DefaultSlowGasThreshold)

	s, found, err := c.FindFirstMatching(context.Background(), r, 100, blocks.IsSlow, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(37), s.Height)

	w, err := c.ScanRecent(context.Background(), r, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, w.Len())
	assert.Equal(t, uint64(40), w.Samples[0].Height)
	assert.Equal(t, uint64(11), w.Samples[29].Height)
}

func TestToBlockNumArg(t *testing.T) {
	assert.Equal(t, "latest", toBlockNumArg(blocks.Latest))
	assert.Equal(t, "0x17f2", toBlockNumArg(blocks.Height(6130)))
}
