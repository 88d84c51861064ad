package registry

import (
	"github.com/ethereum/go-ethereum/common"

	bridgeerr "goswapbridge/errors"
)

func (r *Registry) IsWhitelistedToken(token common.Address) bool {
	return r.tokens[token]
}

// RequireWhitelistedToken fails with ErrNotWhitelistedToken.
func (r *Registry) RequireWhitelistedToken(token common.Address) error {
	if !r.tokens[token] {
		return bridgeerr.ErrNotWhitelistedToken.Newf("token %s", token.Hex())
	}
	return nil
}

func (r *Registry) SetWhitelistToken(caller, token common.Address, whitelisted bool) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if token == (common.Address{}) {
		return bridgeerr.ErrInvalidParameter.New("zero token")
	}
	if whitelisted {
		r.tokens[token] = true
	} else {
		delete(r.tokens, token)
	}
	return nil
}

func (r *Registry) IsWhitelistedChain(chainID uint64) bool {
	return r.chains[chainID]
}

func (r *Registry) SetWhitelistChains(caller common.Address, chainIDs []uint64, whitelisted bool) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if len(chainIDs) == 0 {
		return bridgeerr.ErrInvalidParameter.New("empty chain list")
	}
	for _, id := range chainIDs {
		if id == 0 {
			return bridgeerr.ErrInvalidParameter.New("zero chain id")
		}
	}
	for _, id := range chainIDs {
		if whitelisted {
			r.chains[id] = true
		} else {
			delete(r.chains, id)
		}
	}
	return nil
}

// WhitelistedTokens returns the whitelisted tokens in no particular order.
func (r *Registry) WhitelistedTokens() []common.Address {
	out := make([]common.Address, 0, len(r.tokens))
	for t := range r.tokens {
		out = append(out, t)
	}
	return out
}

// WhitelistedChains returns the whitelisted chain ids in no particular order.
func (r *Registry) WhitelistedChains() []uint64 {
	out := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		out = append(out, id)
	}
	return out
}
