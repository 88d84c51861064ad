// Package custody keeps native and token balances for every account the
// bridge touches, with a journal so a failed step can be undone.
package custody

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

type balanceChange struct {
	token  common.Address
	holder common.Address
	prev   *big.Int
}

// Ledger is an in-memory balance book keyed by (token, holder). The native
// asset is types.NativeToken. Not safe for concurrent use.
type Ledger struct {
	balances map[common.Address]map[common.Address]*big.Int
	journal  []balanceChange
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

func (l *Ledger) BalanceOf(token, holder common.Address) *big.Int {
	if b, ok := l.balances[token][holder]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Mint credits holder with amount of token coming from outside the ledger.
func (l *Ledger) Mint(token, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return bridgeerr.ErrInvalidParameter.New("mint amount must be positive")
	}
	l.set(token, holder, new(big.Int).Add(l.BalanceOf(token, holder), amount))
	return nil
}

// Transfer moves amount of token from one holder to another. It fails with
// ErrTransferFailed, changing nothing, when from cannot cover amount.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return bridgeerr.ErrTransferFailed.New("non-positive amount")
	}
	if to == (common.Address{}) {
		return bridgeerr.ErrTransferFailed.New("transfer to zero address")
	}
	fromBal := l.BalanceOf(token, from)
	if fromBal.Cmp(amount) < 0 {
		return bridgeerr.ErrTransferFailed.Newf("balance %s of %s below %s", fromBal, from.Hex(), amount)
	}
	if from == to {
		return nil
	}
	l.set(token, from, fromBal.Sub(fromBal, amount))
	l.set(token, to, new(big.Int).Add(l.BalanceOf(token, to), amount))
	return nil
}

// Snapshot returns an id for the current state. RevertToSnapshot with that id
// undoes every change made after it.
func (l *Ledger) Snapshot() int {
	return len(l.journal)
}

func (l *Ledger) RevertToSnapshot(id int) {
	for i := len(l.journal) - 1; i >= id; i-- {
		c := l.journal[i]
		if c.prev == nil {
			delete(l.balances[c.token], c.holder)
		} else {
			l.balances[c.token][c.holder] = c.prev
		}
	}
	l.journal = l.journal[:id]
}

// Commit drops the journal. Snapshot ids taken before are invalid afterwards.
func (l *Ledger) Commit() {
	l.journal = l.journal[:0]
}

func (l *Ledger) set(token, holder common.Address, amount *big.Int) {
	holders, ok := l.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[token] = holders
	}
	prev := holders[holder]
	l.journal = append(l.journal, balanceChange{token: token, holder: holder, prev: prev})
	holders[holder] = amount
}

// Balance is one non-zero entry of the ledger.
type Balance struct {
	Token  common.Address `json:"token"`
	Holder common.Address `json:"holder"`
	Amount *big.Int       `json:"amount"`
}

// Store persists the ledger between restarts.
type Store interface {
	SaveBalances(balances []Balance) error
	// LoadBalances returns nil when nothing was saved yet.
	LoadBalances() ([]Balance, error)
}

// Balances lists every non-zero balance ordered by token, then holder.
func (l *Ledger) Balances() []Balance {
	out := make([]Balance, 0)
	for token, holders := range l.balances {
		for holder, amount := range holders {
			if amount.Sign() == 0 {
				continue
			}
			out = append(out, Balance{Token: token, Holder: holder, Amount: new(big.Int).Set(amount)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Token.Bytes(), out[j].Token.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Holder.Bytes(), out[j].Holder.Bytes()) < 0
	})
	return out
}

// Load replaces the whole ledger with balances and drops the journal.
func (l *Ledger) Load(balances []Balance) error {
	next := make(map[common.Address]map[common.Address]*big.Int)
	for _, b := range balances {
		if b.Amount == nil || b.Amount.Sign() < 0 {
			return bridgeerr.ErrInvalidParameter.Newf("negative balance of %s for %s", b.Token.Hex(), b.Holder.Hex())
		}
		holders, ok := next[b.Token]
		if !ok {
			holders = make(map[common.Address]*big.Int)
			next[b.Token] = holders
		}
		holders[b.Holder] = new(big.Int).Set(b.Amount)
	}
	l.balances = next
	l.journal = l.journal[:0]
	return nil
}
