package EVMRPC

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

// transferTopic is keccak256("Transfer(address,address,uint256)").
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Deposit is a confirmed on-chain transfer into custody.
type Deposit struct {
	TxHash common.Hash
	Token  common.Address
	From   common.Address
	Amount *big.Int
	Block  uint64
}

// VerifyDeposit checks that txHash succeeded, has at least confirmations
// blocks including its own, and moved token from `from` to custody. Token
// amounts are the sum of the token's Transfer logs; the native asset is the
// transaction value.
func VerifyDeposit(ctx context.Context, rpcList []string, txHash common.Hash, token, from, custody common.Address, confirmations uint64) (*Deposit, error) {
	return WithClient(rpcList, func(client *ethclient.Client) (*Deposit, error) {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s reverted", txHash.Hex())
		}
		if receipt.BlockNumber == nil {
			return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s is pending", txHash.Hex())
		}
		head, err := client.BlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		block := receipt.BlockNumber.Uint64()
		if head < block || head-block+1 < confirmations {
			return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s has not enough confirmations", txHash.Hex())
		}

		dep := &Deposit{TxHash: txHash, Token: token, From: from, Amount: new(big.Int), Block: block}
		if token == types.NativeToken {
			tx, _, err := client.TransactionByHash(ctx, txHash)
			if err != nil {
				return nil, err
			}
			if tx.To() == nil || *tx.To() != custody {
				return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s does not pay custody", txHash.Hex())
			}
			sender, err := client.TransactionSender(ctx, tx, receipt.BlockHash, receipt.TransactionIndex)
			if err != nil {
				return nil, err
			}
			if sender != from {
				return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s was sent by %s", txHash.Hex(), sender.Hex())
			}
			dep.Amount.Set(tx.Value())
		} else {
			for _, l := range receipt.Logs {
				if l.Address != token || len(l.Topics) != 3 || l.Topics[0] != transferTopic {
					continue
				}
				if common.BytesToAddress(l.Topics[1].Bytes()) != from || common.BytesToAddress(l.Topics[2].Bytes()) != custody {
					continue
				}
				dep.Amount.Add(dep.Amount, new(big.Int).SetBytes(l.Data))
			}
		}
		if dep.Amount.Sign() <= 0 {
			return nil, bridgeerr.ErrInvalidParameter.Newf("transaction %s moved nothing to custody", txHash.Hex())
		}
		return dep, nil
	})
}
