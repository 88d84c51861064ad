package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"goswapbridge/registry"
	"goswapbridge/types"
)

func (e *Engine) IsWhitelistedToken(token common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.IsWhitelistedToken(token)
}

func (e *Engine) IsWhitelistedChain(chainID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.IsWhitelistedChain(chainID)
}

func (e *Engine) Allowance(relayer, token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Allowance(relayer, token)
}

func (e *Engine) IsValidator(addr common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.IsValidator(addr)
}

func (e *Engine) Validators() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Validators()
}

func (e *Engine) Threshold() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Threshold()
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Paused()
}

func (e *Engine) IsConsumed(ref common.Hash) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replay.IsConsumed(ref)
}

// Fingerprint returns the request digest recorded when ref was consumed.
func (e *Engine) Fingerprint(ref common.Hash) (common.Hash, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replay.Fingerprint(ref)
}

func (e *Engine) Owner() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Owner()
}

func (e *Engine) Withdrawer() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Withdrawer()
}

func (e *Engine) RefundCeiling() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RefundCeiling()
}

// CustodyBalance is the engine's own balance of token.
func (e *Engine) CustodyBalance(token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(token, e.address)
}

func (e *Engine) BalanceOf(token, holder common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(token, holder)
}

// Snapshot returns a copy of the registry state.
func (e *Engine) Snapshot() *registry.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Snapshot()
}

func (e *Engine) DomainSeparator() (common.Hash, error) {
	return e.domain.Separator()
}

func (e *Engine) SwapDigest(req *types.SettlementRequest) (common.Hash, error) {
	return e.domain.SwapDigest(req)
}

func (e *Engine) RefundDigest(req *types.RefundRequest) (common.Hash, error) {
	return e.domain.RefundDigest(req)
}

func (e *Engine) WithdrawDigest(req *types.WithdrawalRequest) (common.Hash, error) {
	return e.domain.WithdrawDigest(req)
}
