package nft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientSupply is returned when fewer tokens remain than requested.
var ErrInsufficientSupply = errors.New("nft: not enough tokens available")

// ErrInvalidAmount is returned for a zero mint amount.
var ErrInvalidAmount = errors.New("nft: mint amount must be positive")

// MintResult reports a completed public mint.
type MintResult struct {
	Owner      common.Address `json:"owner"`
	Amount     uint64         `json:"amount"`
	Price      *big.Int       `json:"priceWei"`
	TotalCost  *big.Int       `json:"totalCostWei"`
	GasLimit   uint64         `json:"gasLimit"`
	TxHash     common.Hash    `json:"txHash"`
	SaleOpened bool           `json:"saleOpened"`
	Available  *big.Int       `json:"availableSupply"`
	Balance    *big.Int       `json:"balance"`
	TokenURI   string         `json:"tokenURI,omitempty"`
}

// Minter mints tokens from a deployed contract.
type Minter struct {
	backend  Backend
	signer   Transactor
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	logger   *slog.Logger
}

// NewMinter binds to the contract described by info.
func NewMinter(backend Backend, signer Transactor, info *DeploymentInfo, logger *slog.Logger) (*Minter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parsed, err := parseABI(info.ABI)
	if err != nil {
		return nil, err
	}
	return &Minter{
		backend:  backend,
		signer:   signer,
		address:  info.Address,
		abi:      parsed,
		contract: bind.NewBoundContract(info.Address, parsed, backend, backend, backend),
		logger:   logger,
	}, nil
}

// Mint opens the public sale if needed, checks supply and mints amount tokens
// at the contract's public price.
func (m *Minter) Mint(ctx context.Context, amount uint64) (*MintResult, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	owner := m.signer.Address()
	result := &MintResult{Owner: owner, Amount: amount}

	open, err := callBool(ctx, m.contract, "isPublicSaleOpen")
	if err != nil {
		return nil, err
	}
	if !open {
		m.logger.Info("public sale is not open, opening")
		if _, err := transact(ctx, m.backend, m.signer, m.contract, SaleToggleGasLimit, nil, "setPublicSaleOpen", true); err != nil {
			return nil, err
		}
		result.SaleOpened = true
	}

	available, err := callBig(ctx, m.contract, "availableSupply")
	if err != nil {
		return nil, err
	}
	result.Available = available
	want := new(big.Int).SetUint64(amount)
	if available.Cmp(want) < 0 {
		return result, fmt.Errorf("%w: only %s left", ErrInsufficientSupply, available)
	}

	price, err := callBig(ctx, m.contract, "PRICE_IN_WEI_PUBLIC")
	if err != nil {
		return nil, err
	}
	result.Price = price
	result.TotalCost = new(big.Int).Mul(price, want)

	data, err := m.abi.Pack("publicMint", want)
	if err != nil {
		return nil, fmt.Errorf("pack publicMint: %w", err)
	}
	estimate, err := m.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  owner,
		To:    &m.address,
		Value: result.TotalCost,
		Data:  data,
	})
	if err != nil {
		return nil, wrapGasLimit(fmt.Errorf("estimate publicMint: %w", err))
	}
	result.GasLimit = estimate * 120 / 100

	m.logger.Info("minting",
		slog.Uint64("amount", amount),
		slog.String("total_cost_wei", result.TotalCost.String()),
		slog.Uint64("gas_limit", result.GasLimit),
	)
	hash, err := transact(ctx, m.backend, m.signer, m.contract, result.GasLimit, result.TotalCost, "publicMint", want)
	if err != nil {
		return nil, err
	}
	result.TxHash = hash

	balance, err := callBig(ctx, m.contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	result.Balance = balance

	// Every token shares one image, so token 0's URI stands for all of them.
	uri, err := callString(ctx, m.contract, "tokenURI", big.NewInt(0))
	if err != nil {
		m.logger.Warn("tokenURI lookup failed", slog.String("error", err.Error()))
	} else {
		result.TokenURI = uri
	}
	return result, nil
}

func call(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (interface{}, error) {
	var out []interface{}
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return out[0], nil
}

func callBool(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (bool, error) {
	v, err := call(ctx, c, method, args...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("call %s: unexpected result type %T", method, v)
	}
	return b, nil
}

func callBig(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	v, err := call(ctx, c, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call %s: unexpected result type %T", method, v)
	}
	return n, nil
}

func callString(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (string, error) {
	v, err := call(ctx, c, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("call %s: unexpected result type %T", method, v)
	}
	return s, nil
}
