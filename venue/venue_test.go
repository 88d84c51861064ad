package venue

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goswapbridge/custody"
	bridgeerr "goswapbridge/errors"
)

var (
	usdt    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	weth    = common.HexToAddress("0x4200000000000000000000000000000000000006")
	proxy   = common.HexToAddress("0x7645f840A483721B4a48dC1D97566AE87DF0A612")
	poolAdr = common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481")
)

func fundedPool(t *testing.T) (*custody.Ledger, *Pool) {
	t.Helper()
	l := custody.NewLedger()
	require.NoError(t, l.Mint(usdt, proxy, big.NewInt(1_000)))
	require.NoError(t, l.Mint(weth, poolAdr, big.NewInt(10_000)))
	l.Commit()

	p := NewPool(poolAdr, 100_000)
	require.NoError(t, p.SetRate(usdt, weth, big.NewInt(2), big.NewInt(1)))
	return l, p
}

func swapCall(t *testing.T, minOut int64) Call {
	t.Helper()
	payload, err := EncodeSwapPayload(weth, big.NewInt(minOut))
	require.NoError(t, err)
	return Call{
		Venue:    poolAdr,
		Payer:    proxy,
		SrcToken: usdt,
		DstToken: weth,
		Amount:   big.NewInt(100),
		Payload:  payload,
		GasLimit: 500_000,
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	data, err := EncodeSwapPayload(weth, big.NewInt(42))
	require.NoError(t, err)
	assert.Len(t, data, 64)

	token, minOut, err := DecodeSwapPayload(data)
	require.NoError(t, err)
	assert.Equal(t, weth, token)
	assert.Equal(t, int64(42), minOut.Int64())

	_, _, err = DecodeSwapPayload(nil)
	assert.True(t, bridgeerr.ErrVenueFailed.Is(err))
	_, _, err = DecodeSwapPayload(data[:20])
	assert.Error(t, err)
}

func TestIsolatePoolSuccess(t *testing.T) {
	l, p := fundedPool(t)

	out := Isolate(context.Background(), l, p, swapCall(t, 150), time.Second)
	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, weth, out.Token)
	assert.Equal(t, int64(200), out.Delivered.Int64())
	assert.Equal(t, int64(900), l.BalanceOf(usdt, proxy).Int64())
	assert.Equal(t, int64(200), l.BalanceOf(weth, proxy).Int64())
}

func TestIsolatePoolFailuresRevert(t *testing.T) {
	cases := map[string]func(c *Call, p *Pool){
		"empty calldata": func(c *Call, p *Pool) { c.Payload = nil },
		"slippage":       func(c *Call, p *Pool) { c.Payload, _ = EncodeSwapPayload(weth, big.NewInt(201)) },
		"wrong route":    func(c *Call, p *Pool) { c.Payload, _ = EncodeSwapPayload(usdt, big.NewInt(0)) },
		"out of gas":     func(c *Call, p *Pool) { c.GasLimit = 10 },
		"no liquidity": func(c *Call, p *Pool) {
			c.Amount = big.NewInt(999)
			_ = p.SetRate(usdt, weth, big.NewInt(20), big.NewInt(1))
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			l, p := fundedPool(t)
			c := swapCall(t, 0)
			mutate(&c, p)

			out := Isolate(context.Background(), l, p, c, time.Second)
			assert.True(t, out.Failed())
			assert.Equal(t, int64(1_000), l.BalanceOf(usdt, proxy).Int64())
			assert.Equal(t, int64(0), l.BalanceOf(weth, proxy).Int64())
			assert.Equal(t, int64(10_000), l.BalanceOf(weth, poolAdr).Int64())
		})
	}
}

type funcExecutor func(ctx context.Context, l Ledger, call Call) (Result, error)

func (f funcExecutor) Execute(ctx context.Context, l Ledger, call Call) (Result, error) {
	return f(ctx, l, call)
}

func TestIsolateUntrustedExecutors(t *testing.T) {
	cases := map[string]Executor{
		"panics after taking funds": funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) {
			_ = l.Transfer(c.SrcToken, c.Payer, poolAdr, c.Amount)
			panic("boom")
		}),
		"overstates proceeds": funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) {
			_ = l.Transfer(c.SrcToken, c.Payer, poolAdr, c.Amount)
			_ = l.Transfer(weth, poolAdr, c.Payer, big.NewInt(1))
			return Result{Token: weth, Amount: big.NewInt(500)}, nil
		}),
		"takes too much": funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) {
			_ = l.Transfer(c.SrcToken, c.Payer, poolAdr, big.NewInt(101))
			_ = l.Transfer(weth, poolAdr, c.Payer, big.NewInt(5))
			return Result{Token: weth, Amount: big.NewInt(5)}, nil
		}),
		"wrong token": funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) {
			return Result{Token: usdt, Amount: big.NewInt(5)}, nil
		}),
		"overruns deadline": funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) {
			_ = l.Transfer(c.SrcToken, c.Payer, poolAdr, c.Amount)
			<-ctx.Done()
			return Result{Token: weth, Amount: big.NewInt(0)}, nil
		}),
		"nil": nil,
	}
	for name, exec := range cases {
		t.Run(name, func(t *testing.T) {
			l, _ := fundedPool(t)
			out := Isolate(context.Background(), l, exec, swapCall(t, 0), 20*time.Millisecond)
			assert.True(t, out.Failed())
			assert.Equal(t, int64(1_000), l.BalanceOf(usdt, proxy).Int64())
			assert.Equal(t, int64(0), l.BalanceOf(usdt, poolAdr).Int64())
			assert.Equal(t, int64(0), l.BalanceOf(weth, proxy).Int64())
		})
	}
}

func TestIsolateMarksPanics(t *testing.T) {
	l, _ := fundedPool(t)
	exec := funcExecutor(func(ctx context.Context, l Ledger, c Call) (Result, error) { panic("boom") })
	out := Isolate(context.Background(), l, exec, swapCall(t, 0), time.Second)
	assert.True(t, bridgeerr.ErrPanic.Is(out.Err))
}

func TestDirectory(t *testing.T) {
	_, p := fundedPool(t)
	d := NewDirectory()
	d.Register(poolAdr, p)

	exec, ok := d.Resolve(poolAdr)
	assert.True(t, ok)
	assert.Equal(t, p, exec)

	_, ok = d.Resolve(common.Address{})
	assert.False(t, ok)
	_, ok = d.Resolve(usdt)
	assert.False(t, ok)

	d.Register(poolAdr, nil)
	_, ok = d.Resolve(poolAdr)
	assert.False(t, ok)
}

type rpcEnvelope struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func venueServer(t *testing.T, amountOut string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcEnvelope
		var params swapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if params.Amount.ToInt().Int64() > 500 {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":0,"error":{"code":-32000,"message":"insufficient liquidity"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":0,"result":{"token":"` + params.DstToken.Hex() + `","amountOut":"` + amountOut + `"}}`))
	}))
}

func TestRPCClient(t *testing.T) {
	srv := venueServer(t, "0x64")
	defer srv.Close()

	l, _ := fundedPool(t)
	c := NewRPCClient(srv.URL, poolAdr, time.Second)
	assert.Equal(t, poolAdr, c.Address())

	call := swapCall(t, 0)
	out := Isolate(context.Background(), l, c, call, time.Second)
	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, int64(100), out.Delivered.Int64())
	assert.Equal(t, int64(900), l.BalanceOf(usdt, proxy).Int64())

	call.Amount = big.NewInt(600)
	out = Isolate(context.Background(), l, c, call, time.Second)
	assert.True(t, out.Failed())
	assert.Contains(t, out.Err.Error(), "insufficient liquidity")
	assert.Equal(t, int64(900), l.BalanceOf(usdt, proxy).Int64())
}

func TestIsolateAbandonsBlockedExecutor(t *testing.T) {
	l, _ := fundedPool(t)
	release := make(chan struct{})
	finished := make(chan error, 1)
	exec := funcExecutor(func(ctx context.Context, sl Ledger, c Call) (Result, error) {
		// ignores ctx
		<-release
		err := sl.Transfer(c.SrcToken, c.Payer, poolAdr, c.Amount)
		finished <- err
		return Result{Token: weth, Amount: big.NewInt(1)}, err
	})

	start := time.Now()
	out := Isolate(context.Background(), l, exec, swapCall(t, 0), 30*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
	require.True(t, out.Failed())
	assert.True(t, bridgeerr.ErrVenueFailed.Is(out.Err))

	// the late executor cannot touch the book
	close(release)
	err := <-finished
	assert.True(t, bridgeerr.ErrVenueFailed.Is(err), "%v", err)
	assert.Equal(t, int64(1_000), l.BalanceOf(usdt, proxy).Int64())
	assert.Equal(t, int64(0), l.BalanceOf(usdt, poolAdr).Int64())
}

func TestIsolateStagesUntilAccepted(t *testing.T) {
	l, p := fundedPool(t)
	var seen *big.Int
	exec := funcExecutor(func(ctx context.Context, sl Ledger, c Call) (Result, error) {
		res, err := p.Execute(ctx, sl, c)
		seen = l.BalanceOf(usdt, proxy)
		return res, err
	})

	out := Isolate(context.Background(), l, exec, swapCall(t, 0), time.Second)
	require.False(t, out.Failed(), "%v", out.Err)
	assert.Equal(t, int64(1_000), seen.Int64(), "book unchanged while the venue runs")
	assert.Equal(t, int64(900), l.BalanceOf(usdt, proxy).Int64())
}
