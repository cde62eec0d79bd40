// Package bigblocks switches an account between small (fast) and big (slow)
// block execution on HyperEVM.
package bigblocks

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

// ActionType is the L1 action that toggles big blocks for the sender.
const ActionType = "evmUserModify"

// Action is the exchange payload. Field order matters: it is hashed as a
// msgpack map in declaration order.
type Action struct {
	Type           string `msgpack:"type" json:"type"`
	UsingBigBlocks bool   `msgpack:"usingBigBlocks" json:"usingBigBlocks"`
}

// NewAction builds the toggle action.
func NewAction(enable bool) Action {
	return Action{Type: ActionType, UsingBigBlocks: enable}
}

// ActionHash returns keccak256(msgpack(action) || nonce || 0x00). The trailing
// zero byte marks the absence of a vault address.
func ActionHash(a Action, nonce uint64) (common.Hash, error) {
	packed, err := msgpack.Marshal(&a)
	if err != nil {
		return common.Hash{}, fmt.Errorf("msgpack action: %w", err)
	}

	data := make([]byte, 0, len(packed)+9)
	data = append(data, packed...)
	data = binary.BigEndian.AppendUint64(data, nonce)
	data = append(data, 0x00)
	return crypto.Keccak256Hash(data), nil
}

// agentChainID is the fixed chain ID of the exchange's EIP-712 domain.
const agentChainID = 1337

// AgentTypedData wraps an action hash in the "phantom agent" typed data the
// exchange verifies. Source is "a" on mainnet and "b" on testnet.
func AgentTypedData(connectionID common.Hash, mainnet bool) apitypes.TypedData {
	source := "b"
	if mainnet {
		source = "a"
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(agentChainID),
			VerifyingContract: common.Address{}.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": hexutil.Encode(connectionID.Bytes()),
		},
	}
}
