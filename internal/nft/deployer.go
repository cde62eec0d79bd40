package nft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gas limits for the contract calls. Deployment needs a big block on HyperEVM.
const (
	DefaultDeployGasLimit = 30_000_000
	ReserveGasLimit       = 3_000_000
	SaleToggleGasLimit    = 200_000
	DefaultReserveCount   = 10
)

// ErrNeedsBigBlocks is returned when the chain rejects a transaction for
// exceeding the small-block gas limit.
var ErrNeedsBigBlocks = errors.New("nft: transaction exceeds the block gas limit, enable big blocks")

// Backend is the chain access needed to deploy and call the contract.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Transactor produces signing options for the deployer account.
type Transactor interface {
	Address() common.Address
	ChainID() *big.Int
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// DeployParams configures a deployment.
type DeployParams struct {
	Name         string
	Symbol       string
	BaseURI      string
	GasLimit     uint64 // DefaultDeployGasLimit when zero
	ReserveCount int64  // reserve tokens minted to the deployer, none when zero
	OpenSale     bool
}

// DeployResult is the outcome of Deploy. Post-deploy steps that fail are
// reported in Warnings; the contract stays deployed.
type DeployResult struct {
	Info      *DeploymentInfo `json:"info"`
	GasPrice  *big.Int        `json:"gasPrice"`
	ReserveTx *common.Hash    `json:"reserveTx,omitempty"`
	SaleTx    *common.Hash    `json:"saleTx,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Deployer deploys the NFT contract and runs its setup transactions.
type Deployer struct {
	backend  Backend
	signer   Transactor
	infoPath string
	logger   *slog.Logger
}

// NewDeployer creates a deployer. When infoPath is non-empty the deployment
// record is saved there as soon as the contract is mined.
func NewDeployer(backend Backend, signer Transactor, infoPath string, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{backend: backend, signer: signer, infoPath: infoPath, logger: logger}
}

// Deploy sends the creation transaction for art with (name, symbol, baseURI)
// constructor arguments and waits for it to be mined.
func (d *Deployer) Deploy(ctx context.Context, art *Artifact, p DeployParams) (*DeployResult, error) {
	if err := art.validate(); err != nil {
		return nil, err
	}
	parsed, err := art.ParsedABI()
	if err != nil {
		return nil, err
	}

	gasPrice, err := d.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}
	gasLimit := p.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultDeployGasLimit
	}

	opts, err := d.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	opts.GasPrice = gasPrice
	opts.GasLimit = gasLimit

	d.logger.Info("deploying contract",
		slog.String("contract", art.ContractName),
		slog.String("deployer", d.signer.Address().Hex()),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
	)

	address, tx, contract, err := bind.DeployContract(opts, parsed, art.Bytecode.Bytes(), d.backend, p.Name, p.Symbol, p.BaseURI)
	if err != nil {
		return nil, wrapGasLimit(fmt.Errorf("deploy contract: %w", err))
	}

	d.logger.Info("deployment submitted, waiting for confirmation",
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("address", address.Hex()),
	)

	if _, err := waitSuccess(ctx, d.backend, tx); err != nil {
		return nil, wrapGasLimit(fmt.Errorf("deploy contract: %w", err))
	}

	var chainID uint64
	if id := d.signer.ChainID(); id != nil {
		chainID = id.Uint64()
	}
	info := NewDeploymentInfo(address, d.signer.Address(), art.ABI, chainID, tx.Hash())
	if d.infoPath != "" {
		if err := SaveDeploymentInfo(d.infoPath, info); err != nil {
			return nil, err
		}
		d.logger.Info("deployment info saved", slog.String("path", d.infoPath))
	}

	result := &DeployResult{Info: info, GasPrice: gasPrice}

	if p.ReserveCount > 0 {
		hash, err := d.send(ctx, contract, ReserveGasLimit, "mintReserve", big.NewInt(p.ReserveCount), d.signer.Address())
		if err != nil {
			d.logger.Warn("failed to mint reserve", slog.String("error", err.Error()))
			result.Warnings = append(result.Warnings, fmt.Sprintf("mintReserve: %v", err))
		} else {
			result.ReserveTx = &hash
			d.logger.Info("reserve minted", slog.Int64("count", p.ReserveCount))
		}
	}

	if p.OpenSale {
		hash, err := d.send(ctx, contract, SaleToggleGasLimit, "setPublicSaleOpen", true)
		if err != nil {
			d.logger.Warn("failed to open public sale", slog.String("error", err.Error()))
			result.Warnings = append(result.Warnings, fmt.Sprintf("setPublicSaleOpen: %v", err))
		} else {
			result.SaleTx = &hash
			d.logger.Info("public sale opened")
		}
	}

	return result, nil
}

// send transacts method with a fixed gas limit and waits for success.
func (d *Deployer) send(ctx context.Context, contract *bind.BoundContract, gasLimit uint64, method string, args ...interface{}) (common.Hash, error) {
	return transact(ctx, d.backend, d.signer, contract, gasLimit, nil, method, args...)
}

func transact(ctx context.Context, backend Backend, signer Transactor, contract *bind.BoundContract, gasLimit uint64, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}
	opts.GasPrice = gasPrice
	opts.GasLimit = gasLimit
	opts.Value = value

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, wrapGasLimit(fmt.Errorf("%s: %w", method, err))
	}
	if _, err := waitSuccess(ctx, backend, tx); err != nil {
		return tx.Hash(), fmt.Errorf("%s: %w", method, err)
	}
	return tx.Hash(), nil
}

func waitSuccess(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func wrapGasLimit(err error) error {
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "gas limit") {
		return fmt.Errorf("%w: %w", ErrNeedsBigBlocks, err)
	}
	return err
}
