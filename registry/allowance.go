package registry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

// Allowance returns the remaining amount relayer may settle in token without
// signatures.
func (r *Registry) Allowance(relayer, token common.Address) *big.Int {
	if a, ok := r.allowances[allowanceKey{relayer, token}]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

// SetAllowance replaces the remaining allowance of (relayer, token). A zero
// amount revokes it.
func (r *Registry) SetAllowance(caller, relayer, token common.Address, amount *big.Int) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if relayer == (common.Address{}) || token == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.New("zero relayer or token")
	}
	if amount == nil || amount.Sign() < 0 {
		return bridgeerr.ErrInvalidParameter.New("negative allowance")
	}
	r.setAllowance(relayer, token, amount)
	return nil
}

// ConsumeAllowance decrements the allowance by amount. Insufficient
// allowance is rejected, never clamped.
func (r *Registry) ConsumeAllowance(relayer, token common.Address, amount *big.Int) error {
	remaining := r.Allowance(relayer, token)
	if remaining.Sign() == 0 || remaining.Cmp(amount) < 0 {
		return bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("allowance %s of %s below %s", remaining, relayer.Hex(), amount)
	}
	r.setAllowance(relayer, token, remaining.Sub(remaining, amount))
	return nil
}

// ReleaseAllowance gives back an amount taken by ConsumeAllowance when the
// surrounding operation is rolled back.
func (r *Registry) ReleaseAllowance(relayer, token common.Address, amount *big.Int) {
	remaining := r.Allowance(relayer, token)
	r.setAllowance(relayer, token, remaining.Add(remaining, amount))
}

func (r *Registry) setAllowance(relayer, token common.Address, amount *big.Int) {
	key := allowanceKey{relayer, token}
	if amount.Sign() == 0 {
		delete(r.allowances, key)
		return
	}
	r.allowances[key] = new(big.Int).Set(amount)
}
