package venue

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

type account struct {
	token, holder common.Address
}

type transfer struct {
	token, from, to common.Address
	amount          *big.Int
}

// overlay stages transfers on top of a base ledger. Untouched accounts are
// read through from the base. After close every call is refused, so an
// executor that outlives its deadline can no longer reach the base.
type overlay struct {
	mu       sync.Mutex
	base     Ledger
	balances map[account]*big.Int
	staged   []transfer
	closed   bool
}

func newOverlay(base Ledger) *overlay {
	return &overlay{base: base, balances: make(map[account]*big.Int)}
}

func (o *overlay) balance(a account) *big.Int {
	if b, ok := o.balances[a]; ok {
		return b
	}
	b := o.base.BalanceOf(a.token, a.holder)
	o.balances[a] = b
	return b
}

func (o *overlay) BalanceOf(token, holder common.Address) *big.Int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return big.NewInt(0)
	}
	return new(big.Int).Set(o.balance(account{token, holder}))
}

func (o *overlay) Transfer(token, from, to common.Address, amount *big.Int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return bridgeerr.ErrVenueFailed.New("ledger closed")
	}
	if amount == nil || amount.Sign() <= 0 {
		return bridgeerr.ErrTransferFailed.New("non-positive amount")
	}
	if to == (common.Address{}) {
		return bridgeerr.ErrTransferFailed.New("transfer to zero address")
	}
	src := account{token, from}
	fromBal := o.balance(src)
	if fromBal.Cmp(amount) < 0 {
		return bridgeerr.ErrTransferFailed.Newf("balance %s of %s below %s", fromBal, from.Hex(), amount)
	}
	if from == to {
		return nil
	}
	dst := account{token, to}
	o.balances[src] = new(big.Int).Sub(fromBal, amount)
	o.balances[dst] = new(big.Int).Add(o.balance(dst), amount)
	o.staged = append(o.staged, transfer{token: token, from: from, to: to, amount: new(big.Int).Set(amount)})
	return nil
}

// close freezes the overlay and returns the staged transfers in order.
func (o *overlay) close() []transfer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return o.staged
}

// final reads a staged balance after close.
func (o *overlay) final(token, holder common.Address) *big.Int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return new(big.Int).Set(o.balance(account{token, holder}))
}

// commit replays staged transfers on book. Either all apply or none do.
func commit(book Book, staged []transfer) error {
	snap := book.Snapshot()
	for _, t := range staged {
		if err := book.Transfer(t.token, t.from, t.to, t.amount); err != nil {
			book.RevertToSnapshot(snap)
			return bridgeerr.Wrap(bridgeerr.ErrVenueFailed, err.Error())
		}
	}
	return nil
}
