package venue

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

// Outcome is the result of an isolated venue call. Err is nil on success;
// otherwise no ledger change made by the venue reached the book.
type Outcome struct {
	Token     common.Address
	Delivered *big.Int
	Err       error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Isolate runs exec inside a failure boundary. The executor works on a
// staged copy of book and runs in its own goroutine; Isolate stops waiting
// once timeout expires. Errors, panics, deadline overruns and proceeds that
// the staged ledger does not confirm all become a failed Outcome with book
// untouched. Only an accepted result is committed to book. Isolate itself
// never returns an error and never panics.
func Isolate(ctx context.Context, book Book, exec Executor, call Call, timeout time.Duration) Outcome {
	srcBefore := book.BalanceOf(call.SrcToken, call.Payer)
	dstBefore := book.BalanceOf(call.DstToken, call.Payer)

	stage := newOverlay(book)
	res, err := execute(ctx, stage, exec, call, timeout)
	staged := stage.close()
	if err == nil {
		err = verify(stage, call, res, srcBefore, dstBefore)
	}
	if err == nil {
		err = commit(book, staged)
	}
	if err != nil {
		return Outcome{Err: bridgeerr.Wrapf(err, "venue %s", call.Venue.Hex())}
	}
	return Outcome{Token: call.DstToken, Delivered: new(big.Int).Set(res.Amount)}
}

type reply struct {
	res Result
	err error
}

func execute(ctx context.Context, ledger Ledger, exec Executor, call Call, timeout time.Duration) (Result, error) {
	if exec == nil {
		return Result{}, bridgeerr.ErrVenueFailed.New("no executor at venue address")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan reply, 1)
	go func() {
		var r reply
		defer func() { done <- r }()
		defer bridgeerr.Recover(&r.err)
		r.res, r.err = exec.Execute(ctx, ledger, call)
	}()

	select {
	case r := <-done:
		return settle(r)
	case <-ctx.Done():
		// a reply that is already in counts
		select {
		case r := <-done:
			return settle(r)
		default:
		}
		return Result{}, bridgeerr.Wrap(bridgeerr.ErrVenueFailed, ctx.Err().Error())
	}
}

func settle(r reply) (Result, error) {
	if r.err != nil {
		if bridgeerr.Root(r.err) == nil {
			return Result{}, bridgeerr.Wrap(bridgeerr.ErrVenueFailed, r.err.Error())
		}
		return Result{}, r.err
	}
	return r.res, nil
}

func verify(stage *overlay, call Call, res Result, srcBefore, dstBefore *big.Int) error {
	if res.Token != call.DstToken {
		return bridgeerr.ErrVenueFailed.Newf("proceeds in %s, want %s", res.Token.Hex(), call.DstToken.Hex())
	}
	if res.Amount == nil || res.Amount.Sign() <= 0 {
		return bridgeerr.ErrVenueFailed.New("no proceeds")
	}

	srcAfter := stage.final(call.SrcToken, call.Payer)
	dstAfter := stage.final(call.DstToken, call.Payer)

	if call.SrcToken == call.DstToken {
		// one balance carries both legs: after >= before - amount + proceeds
		floor := new(big.Int).Sub(srcBefore, call.Amount)
		floor.Add(floor, res.Amount)
		if dstAfter.Cmp(floor) < 0 {
			return bridgeerr.ErrVenueFailed.Newf("balance %s below expected %s", dstAfter, floor)
		}
		return nil
	}

	spent := new(big.Int).Sub(srcBefore, srcAfter)
	if spent.Cmp(call.Amount) > 0 {
		return bridgeerr.ErrVenueFailed.Newf("venue took %s, allowed %s", spent, call.Amount)
	}
	gained := new(big.Int).Sub(dstAfter, dstBefore)
	if gained.Cmp(res.Amount) < 0 {
		return bridgeerr.ErrVenueFailed.Newf("venue reported %s, delivered %s", res.Amount, gained)
	}
	return nil
}
