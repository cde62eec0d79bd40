package nft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// DefaultDeploymentFile is where the deployment record is written.
const DefaultDeploymentFile = "deployment-info.json"

// ErrNotDeployed is returned when no deployment record exists.
var ErrNotDeployed = errors.New("nft: contract deployment info not found, deploy the contract first")

// DeploymentInfo records a deployed contract. The address and ABI are what the
// mint page needs.
type DeploymentInfo struct {
	ID             uuid.UUID       `json:"id"`
	Address        common.Address  `json:"address"`
	ABI            json.RawMessage `json:"abi"`
	Deployer       common.Address  `json:"deployer"`
	DeploymentTime time.Time       `json:"deploymentTime"`
	ChainID        uint64          `json:"chainId,omitempty"`
	TxHash         common.Hash     `json:"txHash,omitempty"`
}

// NewDeploymentInfo creates a record with a fresh ID.
func NewDeploymentInfo(address, deployer common.Address, rawABI json.RawMessage, chainID uint64, txHash common.Hash) *DeploymentInfo {
	return &DeploymentInfo{
		ID:             uuid.New(),
		Address:        address,
		ABI:            rawABI,
		Deployer:       deployer,
		DeploymentTime: time.Now().UTC(),
		ChainID:        chainID,
		TxHash:         txHash,
	}
}

// LoadDeploymentInfo reads a record written by SaveDeploymentInfo. Records
// produced by older tooling without an id or chain are accepted.
func LoadDeploymentInfo(path string) (*DeploymentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotDeployed
		}
		return nil, fmt.Errorf("read deployment info: %w", err)
	}

	var info DeploymentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse deployment info %s: %w", path, err)
	}
	if info.Address == (common.Address{}) {
		return nil, fmt.Errorf("deployment info %s: missing address", path)
	}
	return &info, nil
}

// SaveDeploymentInfo writes the record atomically.
func SaveDeploymentInfo(path string, info *DeploymentInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deployment info: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".deployment-info-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write deployment info: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close deployment info: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save deployment info: %w", err)
	}
	return nil
}
