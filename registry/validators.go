package registry

import (
	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

func (r *Registry) IsValidator(addr common.Address) bool {
	_, ok := r.validatorIndex[addr]
	return ok
}

// Validators returns the validator set in insertion order.
func (r *Registry) Validators() []common.Address {
	out := make([]common.Address, len(r.validators))
	copy(out, r.validators)
	return out
}

// Threshold is the number of distinct validator signatures a quorum needs.
// Zero means the quorum path is disabled.
func (r *Registry) Threshold() uint32 {
	return r.threshold
}

// SetValidators adds (valid) or removes (!valid) every address in list. The
// whole batch is rejected if any entry is invalid or if removal would leave
// fewer validators than the threshold.
func (r *Registry) SetValidators(caller common.Address, list []common.Address, valid bool) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if len(list) == 0 {
		return bridgeerr.ErrInvalidParameter.New("empty validator list")
	}

	size := len(r.validators)
	seen := make(map[common.Address]struct{}, len(list))
	for _, v := range list {
		if v == (common.Address{}) {
			return bridgeerr.ErrInvalidParameter.New("zero validator")
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}

		switch {
		case valid && !r.IsValidator(v):
			size++
		case !valid && r.IsValidator(v):
			size--
		}
	}
	if uint32(size) < r.threshold {
		return bridgeerr.ErrInvalidParameter.Newf("%d validators would remain below threshold %d", size, r.threshold)
	}

	for _, v := range list {
		if valid {
			r.addValidator(v)
		} else {
			r.removeValidator(v)
		}
	}
	return nil
}

func (r *Registry) AddValidator(caller, v common.Address) error {
	return r.SetValidators(caller, []common.Address{v}, true)
}

func (r *Registry) RemoveValidator(caller, v common.Address) error {
	return r.SetValidators(caller, []common.Address{v}, false)
}

// SetThreshold requires 1 <= threshold <= len(validators).
func (r *Registry) SetThreshold(caller common.Address, threshold uint32) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if threshold == 0 || int(threshold) > len(r.validators) {
		return bridgeerr.ErrInvalidParameter.Newf("threshold %d out of range [1, %d]", threshold, len(r.validators))
	}
	r.threshold = threshold
	return nil
}

func (r *Registry) addValidator(v common.Address) {
	if r.IsValidator(v) {
		return
	}
	r.validatorIndex[v] = len(r.validators)
	r.validators = append(r.validators, v)
}

func (r *Registry) removeValidator(v common.Address) {
	idx, ok := r.validatorIndex[v]
	if !ok {
		return
	}
	r.validators = append(r.validators[:idx], r.validators[idx+1:]...)
	delete(r.validatorIndex, v)
	for i := idx; i < len(r.validators); i++ {
		r.validatorIndex[r.validators[i]] = i
	}
}
