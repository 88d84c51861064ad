package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/signer"
	"goswapbridge/types"
)

// RefundStableCoin pays a user back in the stable token under validator
// quorum. The amount is capped by the refund ceiling and the reference id is
// consumed from the same ledger settlements use.
func (e *Engine) RefundStableCoin(caller common.Address, req types.RefundRequest) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("refund_stable_coin", caller, &err)

	if err := e.registry.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := e.registry.RequireWhitelistedToken(req.Token); err != nil {
		return nil, err
	}
	if stable := e.registry.StableToken(); stable != (common.Address{}) && req.Token != stable {
		return nil, bridgeerr.ErrInvalidParameter.Newf("%s is not the stable token", req.Token.Hex())
	}
	if err := requireNonZero(req.To, "recipient"); err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount, "amount"); err != nil {
		return nil, err
	}
	if ceiling := e.registry.RefundCeiling(); req.Amount.Cmp(ceiling) > 0 {
		return nil, bridgeerr.ErrRefundThresholdExceeded.Newf("amount %s above ceiling %s", req.Amount, ceiling)
	}
	if err := e.requireNotConsumed(req.ReferenceID); err != nil {
		return nil, err
	}

	digest, err := e.domain.RefundDigest(&req)
	if err != nil {
		return nil, err
	}
	if _, err := signer.VerifyQuorum(e.registry, digest, rawSignatures(req.Signatures)); err != nil {
		return nil, err
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.consume(j, req.ReferenceID, digest); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(req.Token, e.address, req.To, req.Amount); err != nil {
		return nil, err
	}
	return e.emit(types.EventStableCoinRefunded, caller, types.Transfer{
		Token:       req.Token,
		From:        e.address,
		To:          req.To,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Quorum:      true,
	}), nil
}

// WithdrawTokens moves custody tokens to to. Withdrawer only; works while
// paused.
func (e *Engine) WithdrawTokens(caller, token, to common.Address, amount *big.Int) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("withdraw_tokens", caller, &err)

	if err := e.registry.RequireWithdrawer(caller); err != nil {
		return nil, err
	}
	if err := requireNonZero(token, "token"); err != nil {
		return nil, err
	}
	if token == types.NativeToken {
		return nil, bridgeerr.ErrInvalidParameter.New("native asset goes through WithdrawNative")
	}
	return e.withdraw(caller, types.EventTokensWithdrawn, token, to, amount)
}

// WithdrawNative moves custody native asset to to. Withdrawer only; works
// while paused.
func (e *Engine) WithdrawNative(caller, to common.Address, amount *big.Int) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("withdraw_native", caller, &err)

	if err := e.registry.RequireWithdrawer(caller); err != nil {
		return nil, err
	}
	return e.withdraw(caller, types.EventNativeWithdrawn, types.NativeToken, to, amount)
}

// RescueTokens sweeps the whole custody balance of token to the withdrawer.
// Works while paused.
func (e *Engine) RescueTokens(caller, token common.Address) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("rescue_tokens", caller, &err)

	if err := e.registry.RequireWithdrawer(caller); err != nil {
		return nil, err
	}
	if err := requireNonZero(token, "token"); err != nil {
		return nil, err
	}
	if token == types.NativeToken {
		return nil, bridgeerr.ErrInvalidParameter.New("native asset goes through RescueNative")
	}
	return e.withdraw(caller, types.EventRescued, token, caller, e.ledger.BalanceOf(token, e.address))
}

// RescueNative sweeps the whole custody native balance to the withdrawer.
// Works while paused.
func (e *Engine) RescueNative(caller common.Address) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("rescue_native", caller, &err)

	if err := e.registry.RequireWithdrawer(caller); err != nil {
		return nil, err
	}
	return e.withdraw(caller, types.EventRescued, types.NativeToken, caller, e.ledger.BalanceOf(types.NativeToken, e.address))
}

func (e *Engine) withdraw(caller common.Address, kind types.EventKind, token, to common.Address, amount *big.Int) (ev *types.Event, err error) {
	if err := requireNonZero(to, "recipient"); err != nil {
		return nil, err
	}
	if err := requirePositive(amount, "amount"); err != nil {
		return nil, err
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.ledger.Transfer(token, e.address, to, amount); err != nil {
		return nil, err
	}
	return e.emit(kind, caller, types.Transfer{Token: token, From: e.address, To: to, Amount: amount}), nil
}

// WithdrawTokensWithSignatures moves custody funds under validator quorum.
// It ignores the pause latch and consumes the reference id.
func (e *Engine) WithdrawTokensWithSignatures(caller common.Address, req types.WithdrawalRequest) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("withdraw_tokens_with_signatures", caller, &err)

	if err := requireNonZero(req.Token, "token"); err != nil {
		return nil, err
	}
	if err := requireNonZero(req.To, "recipient"); err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount, "amount"); err != nil {
		return nil, err
	}
	if err := e.requireNotConsumed(req.ReferenceID); err != nil {
		return nil, err
	}

	digest, err := e.domain.WithdrawDigest(&req)
	if err != nil {
		return nil, err
	}
	if _, err := signer.VerifyQuorum(e.registry, digest, rawSignatures(req.Signatures)); err != nil {
		return nil, err
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.consume(j, req.ReferenceID, digest); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(req.Token, e.address, req.To, req.Amount); err != nil {
		return nil, err
	}

	kind := types.EventTokensWithdrawn
	if req.Token == types.NativeToken {
		kind = types.EventNativeWithdrawn
	}
	return e.emit(kind, caller, types.Transfer{
		Token:       req.Token,
		From:        e.address,
		To:          req.To,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Quorum:      true,
	}), nil
}
