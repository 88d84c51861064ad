package registry

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

// Snapshot is the persisted form of a Registry.
type Snapshot struct {
	Owner         common.Address   `json:"owner"`
	Withdrawer    common.Address   `json:"withdrawer"`
	Venue         common.Address   `json:"venue"`
	StableToken   common.Address   `json:"stableToken"`
	Paused        bool             `json:"paused"`
	RefundCeiling *big.Int         `json:"refundCeiling"`
	Validators    []common.Address `json:"validators"`
	Threshold     uint32           `json:"threshold"`
	Allowances    []AllowanceEntry `json:"allowances"`
	Tokens        []common.Address `json:"tokens"`
	Chains        []uint64         `json:"chains"`
}

type AllowanceEntry struct {
	Relayer common.Address `json:"relayer"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

// SnapshotStore persists registry snapshots between restarts.
type SnapshotStore interface {
	SaveSnapshot(s *Snapshot) error
	// LoadSnapshot returns nil, nil when nothing was saved yet.
	LoadSnapshot() (*Snapshot, error)
}

// Snapshot returns a deterministic copy of the registry state.
func (r *Registry) Snapshot() *Snapshot {
	s := &Snapshot{
		Owner:         r.owner,
		Withdrawer:    r.withdrawer,
		Venue:         r.venue,
		StableToken:   r.stableToken,
		Paused:        r.paused,
		RefundCeiling: new(big.Int).Set(r.refundCeiling),
		Validators:    r.Validators(),
		Threshold:     r.threshold,
		Tokens:        r.WhitelistedTokens(),
		Chains:        r.WhitelistedChains(),
	}
	for k, v := range r.allowances {
		s.Allowances = append(s.Allowances, AllowanceEntry{Relayer: k.relayer, Token: k.token, Amount: new(big.Int).Set(v)})
	}

	sort.Slice(s.Tokens, func(i, j int) bool { return bytes.Compare(s.Tokens[i][:], s.Tokens[j][:]) < 0 })
	sort.Slice(s.Chains, func(i, j int) bool { return s.Chains[i] < s.Chains[j] })
	sort.Slice(s.Allowances, func(i, j int) bool {
		a, b := s.Allowances[i], s.Allowances[j]
		if c := bytes.Compare(a.Relayer[:], b.Relayer[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Token[:], b.Token[:]) < 0
	})
	return s
}

// Restore builds a Registry from a snapshot, checking the validator
// threshold invariant.
func Restore(s *Snapshot) (*Registry, error) {
	if s == nil {
		return nil, bridgeerr.ErrInvalidParameter.New("nil snapshot")
	}
	r := New(s.Owner)
	r.withdrawer = s.Withdrawer
	r.venue = s.Venue
	r.stableToken = s.StableToken
	r.paused = s.Paused
	if s.RefundCeiling != nil {
		r.refundCeiling = new(big.Int).Set(s.RefundCeiling)
	}
	for _, v := range s.Validators {
		r.addValidator(v)
	}
	if int(s.Threshold) > len(r.validators) {
		return nil, bridgeerr.ErrInvalidParameter.Newf("snapshot threshold %d with %d validators", s.Threshold, len(r.validators))
	}
	r.threshold = s.Threshold
	for _, a := range s.Allowances {
		if a.Amount != nil {
			r.setAllowance(a.Relayer, a.Token, a.Amount)
		}
	}
	for _, t := range s.Tokens {
		r.tokens[t] = true
	}
	for _, id := range s.Chains {
		r.chains[id] = true
	}
	return r, nil
}
