// Package venue models the external swap venue settlement calls into.
//
// A venue is an opaque capability: it receives custody funds of one token and
// is expected to return proceeds of another to the payer. Nothing a venue
// reports is trusted; Isolate checks the ledger before accepting a result.
package venue

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the balance view a venue settles against.
type Ledger interface {
	BalanceOf(token, holder common.Address) *big.Int
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// Book is the ledger Isolate stages a call on and commits to.
type Book interface {
	Ledger
	Snapshot() int
	RevertToSnapshot(id int)
}

// Call is one swap request. Payer funds the swap and receives the proceeds.
type Call struct {
	Venue    common.Address
	Payer    common.Address
	SrcToken common.Address
	DstToken common.Address
	Amount   *big.Int
	Payload  []byte
	GasLimit uint64
}

// Result is what the venue claims to have delivered to the payer.
type Result struct {
	Token  common.Address
	Amount *big.Int
}

// Executor performs a swap by moving balances on ledger. The ledger is a
// staged view that only reaches custody once Isolate accepts the result.
type Executor interface {
	Execute(ctx context.Context, ledger Ledger, call Call) (Result, error)
}

// Directory maps venue addresses to executors. An address with no executor
// behaves like an account without code: every call to it fails.
type Directory struct {
	mu        sync.RWMutex
	executors map[common.Address]Executor
}

func NewDirectory() *Directory {
	return &Directory{executors: make(map[common.Address]Executor)}
}

func (d *Directory) Register(addr common.Address, exec Executor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if exec == nil {
		delete(d.executors, addr)
		return
	}
	d.executors[addr] = exec
}

func (d *Directory) Resolve(addr common.Address) (Executor, bool) {
	if addr == (common.Address{}) {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	exec, ok := d.executors[addr]
	return exec, ok
}

