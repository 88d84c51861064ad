package venue

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

var swapPayloadArgs = func() abi.Arguments {
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uintT, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "tokenOut", Type: addressT}, {Name: "minAmountOut", Type: uintT}}
}()

// EncodeSwapPayload builds the venue calldata (address tokenOut, uint256
// minAmountOut).
func EncodeSwapPayload(tokenOut common.Address, minAmountOut *big.Int) ([]byte, error) {
	if minAmountOut == nil {
		minAmountOut = big.NewInt(0)
	}
	return swapPayloadArgs.Pack(tokenOut, minAmountOut)
}

func DecodeSwapPayload(data []byte) (common.Address, *big.Int, error) {
	if len(data) == 0 {
		return common.Address{}, nil, bridgeerr.ErrVenueFailed.New("empty calldata")
	}
	values, err := swapPayloadArgs.Unpack(data)
	if err != nil {
		return common.Address{}, nil, bridgeerr.Wrap(bridgeerr.ErrVenueFailed, err.Error())
	}
	tokenOut, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, bridgeerr.ErrVenueFailed.New("bad tokenOut")
	}
	minOut, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, bridgeerr.ErrVenueFailed.New("bad minAmountOut")
	}
	return tokenOut, minOut, nil
}

type pair struct {
	in, out common.Address
}

type rate struct {
	num, den *big.Int
}

// Pool is an in-process fixed-rate venue. Its liquidity is whatever the
// ledger holds under the pool's own address.
type Pool struct {
	address    common.Address
	gasPerSwap uint64

	mu    sync.RWMutex
	rates map[pair]rate
}

func NewPool(address common.Address, gasPerSwap uint64) *Pool {
	return &Pool{
		address:    address,
		gasPerSwap: gasPerSwap,
		rates:      make(map[pair]rate),
	}
}

func (p *Pool) Address() common.Address {
	return p.address
}

// SetRate makes the pool pay num/den of tokenOut per unit of tokenIn.
func (p *Pool) SetRate(tokenIn, tokenOut common.Address, num, den *big.Int) error {
	if num == nil || den == nil || num.Sign() <= 0 || den.Sign() <= 0 {
		return bridgeerr.ErrInvalidParameter.New("rate must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[pair{tokenIn, tokenOut}] = rate{num: new(big.Int).Set(num), den: new(big.Int).Set(den)}
	return nil
}

func (p *Pool) Quote(tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, bool) {
	p.mu.RLock()
	r, ok := p.rates[pair{tokenIn, tokenOut}]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	out := new(big.Int).Mul(amount, r.num)
	return out.Quo(out, r.den), true
}

func (p *Pool) Execute(ctx context.Context, ledger Ledger, call Call) (Result, error) {
	if call.GasLimit < p.gasPerSwap {
		return Result{}, bridgeerr.ErrVenueFailed.Newf("out of gas: limit %d, need %d", call.GasLimit, p.gasPerSwap)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tokenOut, minOut, err := DecodeSwapPayload(call.Payload)
	if err != nil {
		return Result{}, err
	}
	if tokenOut != call.DstToken {
		return Result{}, bridgeerr.ErrVenueFailed.Newf("calldata routes to %s", tokenOut.Hex())
	}

	out, ok := p.Quote(call.SrcToken, call.DstToken, call.Amount)
	if !ok {
		return Result{}, bridgeerr.ErrVenueFailed.New("no route")
	}
	if out.Sign() == 0 || out.Cmp(minOut) < 0 {
		return Result{}, bridgeerr.ErrVenueFailed.Newf("slippage: out %s, min %s", out, minOut)
	}

	if err := ledger.Transfer(call.SrcToken, call.Payer, p.address, call.Amount); err != nil {
		return Result{}, err
	}
	if err := ledger.Transfer(call.DstToken, p.address, call.Payer, out); err != nil {
		return Result{}, err
	}
	return Result{Token: call.DstToken, Amount: out}, nil
}
