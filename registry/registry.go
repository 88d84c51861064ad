// Package registry holds the bridge's permission state: roles, the validator
// set, relayer allowances, whitelists and the replay ledger contract.
//
// A Registry is not safe for concurrent use. The bridge engine serialises
// every entry point and owns the only reference.
package registry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

type allowanceKey struct {
	relayer common.Address
	token   common.Address
}

type Registry struct {
	owner      common.Address
	withdrawer common.Address

	venue       common.Address
	stableToken common.Address

	paused        bool
	refundCeiling *big.Int

	validators     []common.Address
	validatorIndex map[common.Address]int
	threshold      uint32

	allowances map[allowanceKey]*big.Int

	tokens map[common.Address]bool
	chains map[uint64]bool
}

func New(owner common.Address) *Registry {
	return &Registry{
		owner:          owner,
		refundCeiling:  big.NewInt(0),
		validatorIndex: make(map[common.Address]int),
		allowances:     make(map[allowanceKey]*big.Int),
		tokens:         make(map[common.Address]bool),
		chains:         make(map[uint64]bool),
	}
}

// RequireOwner fails with ErrAccessDenied unless caller is the current owner.
func (r *Registry) RequireOwner(caller common.Address) error {
	if caller != r.owner {
		return bridgeerr.ErrAccessDenied.Newf("%s is not the owner", caller.Hex())
	}
	return nil
}

func (r *Registry) Owner() common.Address {
	return r.owner
}

func (r *Registry) TransferOwnership(caller, newOwner common.Address) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.New("zero owner")
	}
	r.owner = newOwner
	return nil
}

func (r *Registry) Withdrawer() common.Address {
	return r.withdrawer
}

// RequireWithdrawer fails with ErrAccessDenied unless caller holds the
// withdrawer role. The zero address never holds it.
func (r *Registry) RequireWithdrawer(caller common.Address) error {
	if r.withdrawer == (common.Address{}) || caller != r.withdrawer {
		return bridgeerr.ErrAccessDenied.Newf("%s is not the withdrawer", caller.Hex())
	}
	return nil
}

func (r *Registry) SetWithdrawer(caller, withdrawer common.Address) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if withdrawer == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.New("zero withdrawer")
	}
	r.withdrawer = withdrawer
	return nil
}

func (r *Registry) Paused() bool {
	return r.paused
}

// RequireNotPaused fails with ErrPaused while the pause latch is set.
func (r *Registry) RequireNotPaused() error {
	if r.paused {
		return bridgeerr.ErrPaused.New("bridge is paused")
	}
	return nil
}

func (r *Registry) SetPaused(caller common.Address, paused bool) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	r.paused = paused
	return nil
}

func (r *Registry) RefundCeiling() *big.Int {
	return new(big.Int).Set(r.refundCeiling)
}

func (r *Registry) SetRefundCeiling(caller common.Address, ceiling *big.Int) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if ceiling == nil || ceiling.Sign() < 0 {
		return bridgeerr.ErrInvalidParameter.New("negative refund ceiling")
	}
	r.refundCeiling = new(big.Int).Set(ceiling)
	return nil
}

// Venue is the address of the swap venue settlement calls into. The zero
// address means no venue is configured and every venue call fails.
func (r *Registry) Venue() common.Address {
	return r.venue
}

func (r *Registry) SetVenue(caller, venue common.Address) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	r.venue = venue
	return nil
}

func (r *Registry) StableToken() common.Address {
	return r.stableToken
}

func (r *Registry) SetStableToken(caller, token common.Address) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if token == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.New("zero stable token")
	}
	r.stableToken = token
	return nil
}
