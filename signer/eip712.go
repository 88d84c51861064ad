// Package signer derives EIP-712 digests for the bridge's quorum actions and
// checks validator signatures over them.
package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

// Action kinds signed by validators.
const (
	KindCrossChainSwap   = "CrossChainSwap"
	KindRefundStableCoin = "RefundStableCoin"
	KindWithdrawTokens   = "WithdrawTokens"
)

var typeDefs = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	KindCrossChainSwap: {
		{Name: "srcToken", Type: "address"},
		{Name: "dstToken", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "fromChainId", Type: "uint256"},
		{Name: "dstChainId", Type: "uint256"},
		{Name: "txHash", Type: "bytes32"},
	},
	KindRefundStableCoin: {
		{Name: "token", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "txHash", Type: "bytes32"},
	},
	KindWithdrawTokens: {
		{Name: "token", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "txHash", Type: "bytes32"},
	},
}

// Domain binds signatures to one bridge deployment: the protocol name and
// version, the local chain id and the verifying contract address.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

func (d Domain) typedData(primaryType string, message apitypes.TypedDataMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       typeDefs,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           math.NewHexOrDecimal256(int64(d.ChainID)),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: message,
	}
}

// Separator returns the EIP-712 domain separator.
func (d Domain) Separator() (common.Hash, error) {
	td := d.typedData(KindCrossChainSwap, nil)
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, bridgeerr.Wrap(bridgeerr.ErrInvalidParameter, err.Error())
	}
	return common.BytesToHash(sep), nil
}

// Digest returns keccak256(0x1901 ‖ separator ‖ hashStruct(message)) for
// the given action kind.
func (d Domain) Digest(primaryType string, message apitypes.TypedDataMessage) (common.Hash, error) {
	if _, ok := typeDefs[primaryType]; !ok || primaryType == "EIP712Domain" {
		return common.Hash{}, bridgeerr.ErrInvalidParameter.Newf("unknown action kind %q", primaryType)
	}
	td := d.typedData(primaryType, message)
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, bridgeerr.Wrap(bridgeerr.ErrInvalidParameter, err.Error())
	}
	msgHash, err := td.HashStruct(primaryType, message)
	if err != nil {
		return common.Hash{}, bridgeerr.Wrap(bridgeerr.ErrInvalidParameter, err.Error())
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep, msgHash), nil
}

// SwapDigest binds the full settlement field set.
func (d Domain) SwapDigest(req *types.SettlementRequest) (common.Hash, error) {
	return d.Digest(KindCrossChainSwap, apitypes.TypedDataMessage{
		"srcToken":    req.SrcToken.Hex(),
		"dstToken":    req.DstToken.Hex(),
		"to":          req.To.Hex(),
		"amount":      amountString(req.Amount),
		"fromChainId": new(big.Int).SetUint64(req.FromChainID).String(),
		"dstChainId":  new(big.Int).SetUint64(req.DstChainID).String(),
		"txHash":      req.ReferenceID.Hex(),
	})
}

func (d Domain) RefundDigest(req *types.RefundRequest) (common.Hash, error) {
	return d.Digest(KindRefundStableCoin, transferMessage(req.Token, req.To, req.Amount, req.ReferenceID))
}

func (d Domain) WithdrawDigest(req *types.WithdrawalRequest) (common.Hash, error) {
	return d.Digest(KindWithdrawTokens, transferMessage(req.Token, req.To, req.Amount, req.ReferenceID))
}

func transferMessage(token, to common.Address, amount *big.Int, ref common.Hash) apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"token":  token.Hex(),
		"to":     to.Hex(),
		"amount": amountString(amount),
		"txHash": ref.Hex(),
	}
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
