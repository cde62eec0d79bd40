package bigblocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/Aranthus/erc-721-hyperliquid/internal/chain"
	"github.com/Aranthus/erc-721-hyperliquid/internal/signer"
)

// L1ActionPrecompile receives L1 actions sent as EVM transactions.
var L1ActionPrecompile = common.HexToAddress("0x0000000000000000000000000000000000000001")

// precompileGas is the gas limit used for transactions to the precompile.
const precompileGas = 500_000

// HTTPClient is the subset of *http.Client used by ExchangeAction.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TypedDataSigner signs EIP-712 payloads.
type TypedDataSigner interface {
	SignTypedData(data apitypes.TypedData) (signer.Signature, error)
}

// ExchangeAction signs the toggle as an exchange L1 action and posts it to the
// exchange API.
type ExchangeAction struct {
	URL     string // full /exchange endpoint
	Mainnet bool
	Signer  TypedDataSigner
	Client  HTTPClient
	Now     func() time.Time
}

type exchangeRequest struct {
	Action    Action           `json:"action"`
	Nonce     uint64           `json:"nonce"`
	Signature signer.Signature `json:"signature"`
}

type exchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Name implements Strategy.
func (e *ExchangeAction) Name() string { return "exchange" }

// Apply implements Strategy.
func (e *ExchangeAction) Apply(ctx context.Context, enable bool) (*Receipt, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	nonce := uint64(now().UnixMilli())
	action := NewAction(enable)

	hash, err := ActionHash(action, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := e.Signer.SignTypedData(AgentTypedData(hash, e.Mainnet))
	if err != nil {
		return nil, fmt.Errorf("sign action: %w", err)
	}

	body, err := json.Marshal(exchangeRequest{Action: action, Nonce: nonce, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out exchangeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("exchange returned non-JSON response (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode != http.StatusOK || out.Status != "ok" {
		return nil, fmt.Errorf("exchange rejected action (HTTP %d, status %q): %s", resp.StatusCode, out.Status, string(out.Response))
	}

	return &Receipt{Detail: string(respBody)}, nil
}

// NodeSender sends unsigned transactions through a node that holds the key.
type NodeSender interface {
	SendUnsignedTransaction(ctx context.Context, args chain.CallArgs) (common.Hash, error)
}

// NodeTransaction asks the RPC node to send the action to the precompile with
// eth_sendTransaction. Data is abi.encode(tuple(string,bool)).
type NodeTransaction struct {
	Node NodeSender
	From common.Address
}

// Name implements Strategy.
func (n *NodeTransaction) Name() string { return "node" }

// Apply implements Strategy.
func (n *NodeTransaction) Apply(ctx context.Context, enable bool) (*Receipt, error) {
	data, err := encodeTupleAction(enable)
	if err != nil {
		return nil, err
	}
	to := L1ActionPrecompile
	hash, err := n.Node.SendUnsignedTransaction(ctx, chain.CallArgs{From: n.From, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("eth_sendTransaction: %w", err)
	}
	return &Receipt{TxHash: hash}, nil
}

// TxBackend is what SignedTransaction needs from the chain.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TxSigner signs transactions for a single account.
type TxSigner interface {
	Address() common.Address
	SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// SignedTransaction signs a legacy transaction to the precompile locally and
// broadcasts it. Data is abi.encode(string,bool).
type SignedTransaction struct {
	Backend TxBackend
	Signer  TxSigner
}

// Name implements Strategy.
func (s *SignedTransaction) Name() string { return "signed" }

// Apply implements Strategy.
func (s *SignedTransaction) Apply(ctx context.Context, enable bool) (*Receipt, error) {
	data, err := encodeFlatAction(enable)
	if err != nil {
		return nil, err
	}

	from := s.Signer.Address()
	nonce, err := s.Backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := s.Backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, L1ActionPrecompile, big.NewInt(0), precompileGas, gasPrice, data)
	signedTx, err := s.Signer.SignTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := s.Backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return &Receipt{TxHash: signedTx.Hash()}, nil
}

var (
	stringType, _ = abi.NewType("string", "", nil)
	boolType, _   = abi.NewType("bool", "", nil)
	tupleType, _  = abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "action", Type: "string"},
		{Name: "enabled", Type: "bool"},
	})
)

func encodeTupleAction(enable bool) (hexutil.Bytes, error) {
	args := abi.Arguments{{Type: tupleType}}
	data, err := args.Pack(struct {
		Action  string
		Enabled bool
	}{ActionType, enable})
	if err != nil {
		return nil, fmt.Errorf("encode action tuple: %w", err)
	}
	return data, nil
}

func encodeFlatAction(enable bool) ([]byte, error) {
	args := abi.Arguments{{Type: stringType}, {Type: boolType}}
	data, err := args.Pack(ActionType, enable)
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}
	return data, nil
}
