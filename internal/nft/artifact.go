// Package nft deploys and mints the single-image NFT contract.
package nft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultContractName is the contract compiled and deployed by default.
const DefaultContractName = "SingleImageNFT"

// ErrEmptyBytecode is returned when an artifact has no creation code.
var ErrEmptyBytecode = errors.New("nft: artifact has no bytecode")

// Artifact is a compiled contract: ABI and creation bytecode.
type Artifact struct {
	ContractName string          `json:"contractName,omitempty"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     Bytecode        `json:"bytecode"`
}

// Bytecode accepts both a plain hex string (Hardhat, Foundry) and an object
// with an "object" field (solc standard JSON).
type Bytecode struct {
	hex string
}

// NewBytecode wraps a hex string, with or without 0x.
func NewBytecode(s string) Bytecode {
	return Bytecode{hex: s}
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b.hex = s
		return nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		b.hex = obj.Object
		return nil
	}

	return fmt.Errorf("bytecode must be a string or object with 'object' field")
}

// MarshalJSON writes the bytecode as a 0x-prefixed string.
func (b Bytecode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// String returns the bytecode with a 0x prefix.
func (b Bytecode) String() string {
	if b.hex == "" || strings.HasPrefix(b.hex, "0x") {
		return b.hex
	}
	return "0x" + b.hex
}

// Bytes decodes the bytecode.
func (b Bytecode) Bytes() []byte {
	return common.FromHex(b.hex)
}

// LoadArtifact reads a Hardhat or Foundry artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if len(a.ABI) == 0 {
		return fmt.Errorf("nft: artifact %q has no ABI", a.ContractName)
	}
	if len(a.Bytecode.Bytes()) == 0 {
		return ErrEmptyBytecode
	}
	return nil
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	return parseABI(a.ABI)
}

// EncodeConstructorArgs packs constructor arguments, to be appended to the
// creation code.
func (a *Artifact) EncodeConstructorArgs(args ...interface{}) ([]byte, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	return packed, nil
}

func parseABI(raw json.RawMessage) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ABI: %w", err)
	}
	return parsed, nil
}
