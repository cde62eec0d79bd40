// Package signer signs transactions and typed data with a locally held key.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ErrMissingKey is returned when no private key is configured.
var ErrMissingKey = errors.New("signer: private key is required")

// LocalSigner signs with a private key read from configuration.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewLocalSigner creates a signer from a hex-encoded private key. The key may
// carry a "0x" prefix.
func NewLocalSigner(hexKey string, chainID *big.Int) (*LocalSigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, ErrMissingKey
	}

	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &LocalSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the signer's Ethereum address.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain ID used for EIP-155 signing.
func (s *LocalSigner) ChainID() *big.Int {
	return s.chainID
}

// SignTransaction signs tx for the signer's chain.
func (s *LocalSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if s.chainID == nil {
		return nil, fmt.Errorf("chain ID is nil")
	}
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signedTx, nil
}

// TransactOpts returns bind options that sign with this key.
func (s *LocalSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// SignHash signs a 32-byte hash. V is returned as 27 or 28.
func (s *LocalSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Signature is an ECDSA signature split the way JSON APIs expect it.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// SignTypedData signs EIP-712 typed data.
func (s *LocalSigner) SignTypedData(data apitypes.TypedData) (Signature, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return Signature{}, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := s.SignHash(hash)
	if err != nil {
		return Signature{}, err
	}
	return SplitSignature(sig), nil
}

// SplitSignature converts a 65-byte [R || S || V] signature.
func SplitSignature(sig []byte) Signature {
	return Signature{
		R: fmt.Sprintf("0x%x", sig[:32]),
		S: fmt.Sprintf("0x%x", sig[32:64]),
		V: sig[64],
	}
}

// RecoverAddress returns the address that produced sig over hash. V may be
// 0/1 or 27/28.
func RecoverAddress(hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
