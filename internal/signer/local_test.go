package signer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (anvil-0). Never holds real funds.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewLocalSigner(t *testing.T) {
	for name, key := range map[string]string{
		"bare hex":    testKey,
		"0x prefixed": "0x" + testKey,
	} {
		t.Run(name, func(t *testing.T) {
			s, err := NewLocalSigner(key, big.NewInt(998))
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(testAddress), s.Address())
			assert.Equal(t, int64(998), s.ChainID().Int64())
		})
	}
}

func TestNewLocalSigner_Invalid(t *testing.T) {
	_, err := NewLocalSigner("", big.NewInt(1))
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = NewLocalSigner("zz", big.NewInt(1))
	assert.Error(t, err)
}

func TestLocalSigner_SignTransaction(t *testing.T) {
	chainID := big.NewInt(999)
	s, err := NewLocalSigner(testKey, chainID)
	require.NoError(t, err)

	to := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tx := types.NewTransaction(0, to, big.NewInt(0), 500_000, big.NewInt(1e9), []byte{0x01})

	signed, err := s.SignTransaction(context.Background(), tx)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
}

func TestLocalSigner_SignHashRoundTrip(t *testing.T) {
	s, err := NewLocalSigner(testKey, big.NewInt(1))
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("hello"))
	sig, err := s.SignHash(hash)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[64])

	addr, err := RecoverAddress(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)

	_, err = s.SignHash([]byte("short"))
	assert.Error(t, err)
}

func TestLocalSigner_SignTypedData(t *testing.T) {
	s, err := NewLocalSigner(testKey, big.NewInt(1))
	require.NoError(t, err)

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Mail": {{Name: "contents", Type: "string"}},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:    "Test",
			ChainId: math.NewHexOrDecimal256(1),
		},
		Message: apitypes.TypedDataMessage{"contents": "hi"},
	}

	sig, err := s.SignTypedData(td)
	require.NoError(t, err)
	assert.Len(t, sig.R, 66)
	assert.Len(t, sig.S, 66)

	hash, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)
	raw := append(append(common.FromHex(sig.R), common.FromHex(sig.S)...), sig.V)
	addr, err := RecoverAddress(hash, raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)
}
