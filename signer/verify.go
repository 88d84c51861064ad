package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	bridgeerr "goswapbridge/errors"
)

// ValidatorSet is the view of the registry a quorum check needs.
type ValidatorSet interface {
	IsValidator(addr common.Address) bool
	Threshold() uint32
}

// RecoverSigner returns the address that produced sig over digest. The
// recovery id may be given as 0/1 or 27/28; high-s signatures are rejected.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("signature length %d", len(sig))
	}

	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] == 27 || normalized[crypto.RecoveryIDOffset] == 28 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	v := normalized[crypto.RecoveryIDOffset]
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, bridgeerr.ErrNotRelayerOrInsufficientApproval.New("malformed signature values")
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, bridgeerr.Wrap(bridgeerr.ErrNotRelayerOrInsufficientApproval, err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyQuorum succeeds iff at least Threshold signatures are given, each
// recovers to a distinct identity, and every identity is a current
// validator. Signature order does not matter. It never mutates anything.
func VerifyQuorum(set ValidatorSet, digest common.Hash, sigs [][]byte) ([]common.Address, error) {
	threshold := set.Threshold()
	if threshold == 0 {
		return nil, bridgeerr.ErrNotRelayerOrInsufficientApproval.New("quorum threshold not configured")
	}
	if uint32(len(sigs)) < threshold {
		return nil, bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("%d signatures below threshold %d", len(sigs), threshold)
	}

	signers := make([]common.Address, 0, len(sigs))
	seen := make(map[common.Address]struct{}, len(sigs))
	for i, sig := range sigs {
		addr, err := RecoverSigner(digest, sig)
		if err != nil {
			return nil, bridgeerr.Wrapf(err, "signature %d", i)
		}
		if _, dup := seen[addr]; dup {
			return nil, bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("duplicate signer %s", addr.Hex())
		}
		if !set.IsValidator(addr) {
			return nil, bridgeerr.ErrNotRelayerOrInsufficientApproval.Newf("%s is not a validator", addr.Hex())
		}
		seen[addr] = struct{}{}
		signers = append(signers, addr)
	}
	return signers, nil
}
