package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

// RequestSwap escrows intent.Amount of intent.SrcToken from caller into
// custody and emits the swap intent for off-chain relaying. OrderID is caller
// metadata and is not deduplicated.
func (e *Engine) RequestSwap(caller common.Address, intent types.SwapIntent) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("request_swap", caller, &err)

	if err := e.registry.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := e.registry.RequireWhitelistedToken(intent.SrcToken); err != nil {
		return nil, err
	}
	if intent.DstChainID == e.chainID {
		return nil, bridgeerr.ErrInvalidParameter.New("destination is the local chain")
	}
	if !e.registry.IsWhitelistedChain(intent.DstChainID) {
		return nil, bridgeerr.ErrInvalidParameter.Newf("chain %d not whitelisted", intent.DstChainID)
	}
	if intent.To.IsZero() {
		return nil, bridgeerr.ErrInvalidParameter.New("zero recipient")
	}
	if err := requirePositive(intent.Amount, "amount"); err != nil {
		return nil, err
	}

	attached := intent.AttachedValue
	if attached == nil {
		attached = new(big.Int)
	}
	if intent.SrcToken == types.NativeToken {
		if attached.Cmp(intent.Amount) != 0 {
			return nil, bridgeerr.ErrInvalidParameter.Newf("attached value %s, amount %s", attached, intent.Amount)
		}
	} else if attached.Sign() != 0 {
		return nil, bridgeerr.ErrInvalidParameter.New("value attached to a token swap")
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.ledger.Transfer(intent.SrcToken, caller, e.address, intent.Amount); err != nil {
		return nil, err
	}

	intent.User = caller
	intent.AttachedValue = attached
	return e.emit(types.EventSwapRequested, caller, intent), nil
}

// Deposit credits custody with funds arriving from outside the engine, such
// as a direct transfer to the custody account.
func (e *Engine) Deposit(caller, token common.Address, amount *big.Int) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("deposit", caller, &err)

	if err := requireNonZero(token, "token"); err != nil {
		return err
	}
	if err := requirePositive(amount, "amount"); err != nil {
		return err
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.ledger.Mint(token, e.address, amount); err != nil {
		return err
	}
	e.emit(types.EventDeposited, caller, types.Transfer{Token: token, From: caller, To: e.address, Amount: amount})
	return nil
}

// FundingReference is the replay key of a funding credit: one per
// transaction and token.
func FundingReference(txHash common.Hash, token common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte("fund"), txHash.Bytes(), token.Bytes())
}

// Fund credits caller with a deposit the caller made to the custody account
// on chain, so it can be escrowed by RequestSwap. The deposit must already
// be verified; Fund only makes sure it is credited once.
func (e *Engine) Fund(caller, token common.Address, txHash common.Hash, amount *big.Int) (ev *types.Event, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe("fund", caller, &err)

	if err := e.registry.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := e.registry.RequireWhitelistedToken(token); err != nil {
		return nil, err
	}
	if err := requireNonZero(caller, "depositor"); err != nil {
		return nil, err
	}
	if err := requirePositive(amount, "amount"); err != nil {
		return nil, err
	}
	if txHash == (common.Hash{}) {
		return nil, bridgeerr.ErrInvalidParameter.New("zero transaction hash")
	}
	ref := FundingReference(txHash, token)
	if err := e.requireNotConsumed(ref); err != nil {
		return nil, err
	}

	j := e.begin()
	defer func() { e.finish(j, err) }()

	if err := e.consume(j, ref, txHash); err != nil {
		return nil, err
	}
	if err := e.ledger.Mint(token, caller, amount); err != nil {
		return nil, err
	}
	return e.emit(types.EventFunded, caller, types.Transfer{
		Token:       token,
		From:        caller,
		To:          e.address,
		Amount:      amount,
		ReferenceID: ref,
	}), nil
}
