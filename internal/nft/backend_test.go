package nft

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/Aranthus/erc-721-hyperliquid/internal/signer"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newTestSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSigner(testKey, big.NewInt(998))
	require.NoError(t, err)
	return s
}

func loadTestArtifact(t *testing.T) *Artifact {
	t.Helper()
	art, err := LoadArtifact("testdata/SingleImageNFT.json")
	require.NoError(t, err)
	return art
}

// fakeChain is an in-memory contract backend that executes the NFT methods
// against a few fields of state.
type fakeChain struct {
	mu  sync.Mutex
	abi abi.ABI

	gasPrice *big.Int
	nonce    uint64
	estimate uint64

	saleOpen  bool
	available *big.Int
	price     *big.Int
	balances  map[common.Address]*big.Int
	uri       string

	sendErr  map[string]error // method ("" for deploy) -> SendTransaction error
	revert   map[string]bool  // method -> receipt status failed
	sent     []*types.Transaction
	methods  []string
	receipts map[common.Hash]*types.Receipt
}

func newFakeChain(t *testing.T, art *Artifact) *fakeChain {
	t.Helper()
	parsed, err := art.ParsedABI()
	require.NoError(t, err)
	return &fakeChain{
		abi:       parsed,
		gasPrice:  big.NewInt(1_000_000_000),
		estimate:  100_000,
		available: big.NewInt(100),
		price:     big.NewInt(1e15),
		balances:  map[common.Address]*big.Int{},
		uri:       "ipfs://image",
		sendErr:   map[string]error{},
		revert:    map[string]bool{},
		receipts:  map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeChain) methodOf(data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, errors.New("short calldata")
	}
	return f.abi.MethodById(data[:4])
}

func (f *fakeChain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.methodOf(call.Data)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	switch m.Name {
	case "isPublicSaleOpen":
		out = []interface{}{f.saleOpen}
	case "availableSupply":
		out = []interface{}{f.available}
	case "PRICE_IN_WEI_PUBLIC":
		out = []interface{}{f.price}
	case "balanceOf":
		args, err := m.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		bal := f.balances[args[0].(common.Address)]
		if bal == nil {
			bal = big.NewInt(0)
		}
		out = []interface{}{bal}
	case "tokenURI":
		out = []interface{}{f.uri}
	default:
		return nil, errors.New("execution reverted")
	}
	return m.Outputs.Pack(out...)
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeChain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return f.estimate, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := ""
	if tx.To() != nil {
		m, err := f.methodOf(tx.Data())
		if err != nil {
			return err
		}
		name = m.Name
	}
	if err := f.sendErr[name]; err != nil {
		return err
	}

	status := types.ReceiptStatusSuccessful
	if f.revert[name] {
		status = types.ReceiptStatusFailed
	} else if tx.To() != nil {
		f.apply(name, tx)
	}

	f.nonce++
	f.sent = append(f.sent, tx)
	f.methods = append(f.methods, name)
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(f.sent))),
	}
	return nil
}

func (f *fakeChain) apply(name string, tx *types.Transaction) {
	m := f.abi.Methods[name]
	args, _ := m.Inputs.Unpack(tx.Data()[4:])
	switch name {
	case "setPublicSaleOpen":
		f.saleOpen = args[0].(bool)
	case "mintReserve":
		f.credit(args[1].(common.Address), args[0].(*big.Int))
	case "publicMint":
		from, _ := types.Sender(types.LatestSignerForChainID(big.NewInt(998)), tx)
		f.credit(from, args[0].(*big.Int))
	}
}

func (f *fakeChain) credit(to common.Address, n *big.Int) {
	bal := f.balances[to]
	if bal == nil {
		bal = big.NewInt(0)
	}
	f.balances[to] = new(big.Int).Add(bal, n)
	f.available = new(big.Int).Sub(f.available, n)
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}
