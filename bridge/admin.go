package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"goswapbridge/types"
)

// configure applies an owner setter, then records and persists the change.
func (e *Engine) configure(op string, caller common.Address, kind types.EventKind, change types.ConfigChange, apply func() error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.observe(op, caller, &err)

	if err := apply(); err != nil {
		return err
	}
	e.emit(kind, caller, change)
	e.persist()
	return nil
}

func (e *Engine) TransferOwnership(caller, newOwner common.Address) error {
	return e.configure("transfer_ownership", caller, types.EventOwnershipTransferred,
		types.ConfigChange{Addresses: []common.Address{newOwner}},
		func() error { return e.registry.TransferOwnership(caller, newOwner) })
}

func (e *Engine) SetWithdrawer(caller, withdrawer common.Address) error {
	return e.configure("set_withdrawer", caller, types.EventWithdrawerSet,
		types.ConfigChange{Addresses: []common.Address{withdrawer}},
		func() error { return e.registry.SetWithdrawer(caller, withdrawer) })
}

// SetValidators adds (valid) or removes every address of list. The batch is
// rejected as a whole if any entry is invalid.
func (e *Engine) SetValidators(caller common.Address, list []common.Address, valid bool) error {
	return e.configure("set_validators", caller, types.EventValidatorsSet,
		types.ConfigChange{Addresses: list, Enabled: valid},
		func() error { return e.registry.SetValidators(caller, list, valid) })
}

func (e *Engine) AddValidator(caller, validator common.Address) error {
	return e.SetValidators(caller, []common.Address{validator}, true)
}

func (e *Engine) RemoveValidator(caller, validator common.Address) error {
	return e.SetValidators(caller, []common.Address{validator}, false)
}

func (e *Engine) SetThreshold(caller common.Address, threshold uint32) error {
	return e.configure("set_threshold", caller, types.EventThresholdSet,
		types.ConfigChange{Value: uint64(threshold)},
		func() error { return e.registry.SetThreshold(caller, threshold) })
}

func (e *Engine) Pause(caller common.Address) error {
	return e.configure("pause", caller, types.EventPaused,
		types.ConfigChange{Enabled: true},
		func() error { return e.registry.SetPaused(caller, true) })
}

func (e *Engine) Unpause(caller common.Address) error {
	return e.configure("unpause", caller, types.EventUnpaused,
		types.ConfigChange{},
		func() error { return e.registry.SetPaused(caller, false) })
}

// SetAllowance replaces the amount of token relayer may settle without a
// quorum.
func (e *Engine) SetAllowance(caller, relayer, token common.Address, amount *big.Int) error {
	return e.configure("set_allowance", caller, types.EventAllowanceSet,
		types.ConfigChange{Addresses: []common.Address{relayer}, Token: token, Amount: amount},
		func() error { return e.registry.SetAllowance(caller, relayer, token, amount) })
}

func (e *Engine) SetRefundCeiling(caller common.Address, ceiling *big.Int) error {
	return e.configure("set_refund_ceiling", caller, types.EventRefundCeilingSet,
		types.ConfigChange{Amount: ceiling},
		func() error { return e.registry.SetRefundCeiling(caller, ceiling) })
}

func (e *Engine) SetWhitelistToken(caller, token common.Address, whitelisted bool) error {
	return e.configure("set_whitelist_token", caller, types.EventTokenWhitelisted,
		types.ConfigChange{Token: token, Enabled: whitelisted},
		func() error { return e.registry.SetWhitelistToken(caller, token, whitelisted) })
}

func (e *Engine) SetWhitelistChains(caller common.Address, chainIDs []uint64, whitelisted bool) error {
	return e.configure("set_whitelist_chains", caller, types.EventChainsWhitelisted,
		types.ConfigChange{Chains: chainIDs, Enabled: whitelisted},
		func() error { return e.registry.SetWhitelistChains(caller, chainIDs, whitelisted) })
}

func (e *Engine) SetVenue(caller, venue common.Address) error {
	return e.configure("set_venue", caller, types.EventVenueSet,
		types.ConfigChange{Addresses: []common.Address{venue}},
		func() error { return e.registry.SetVenue(caller, venue) })
}

func (e *Engine) SetStableToken(caller, token common.Address) error {
	return e.configure("set_stable_token", caller, types.EventStableTokenSet,
		types.ConfigChange{Token: token},
		func() error { return e.registry.SetStableToken(caller, token) })
}
