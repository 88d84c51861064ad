package EVMRPC

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

const erc20BalanceABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var erc20 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// WithClient runs f against the first RPC endpoint of rpcList that answers
// without error.
func WithClient[T any](rpcList []string, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	if len(rpcList) == 0 {
		return res, bridgeerr.ErrInvalidParameter.New("no RPC endpoints configured")
	}

	var client *ethclient.Client
	for _, url := range rpcList {
		client, err = ethclient.Dial(url)
		if err != nil {
			logrus.WithError(err).Warnf("Error connecting to %s", url)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
		logrus.WithError(err).Warnf("RPC call to %s failed", url)
	}
	return
}

// TokenBalance reads holder's on-chain balance of token. The native asset
// sentinel reads the account balance instead of calling a contract.
func TokenBalance(ctx context.Context, rpcList []string, token, holder common.Address) (*big.Int, error) {
	return WithClient(rpcList, func(client *ethclient.Client) (*big.Int, error) {
		if token == types.NativeToken {
			return client.BalanceAt(ctx, holder, nil)
		}

		data, err := erc20.Pack("balanceOf", holder)
		if err != nil {
			return nil, err
		}
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		values, err := erc20.Unpack("balanceOf", out)
		if err != nil {
			return nil, err
		}
		balance, ok := values[0].(*big.Int)
		if !ok {
			return nil, bridgeerr.ErrInvalidParameter.New("unexpected balanceOf output")
		}
		return balance, nil
	})
}

// ChainID asks the first reachable endpoint for its chain id.
func ChainID(ctx context.Context, rpcList []string) (*big.Int, error) {
	return WithClient(rpcList, func(client *ethclient.Client) (*big.Int, error) {
		return client.ChainID(ctx)
	})
}
