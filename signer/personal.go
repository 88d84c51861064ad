package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	bridgeerr "goswapbridge/errors"
)

// PersonalHash is the eth_sign / personal_sign hash of data.
func PersonalHash(data []byte) common.Hash {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256Hash([]byte(msg))
}

func publicKeyBytesToAddress(publicKey []byte) common.Address {
	hash := crypto.Keccak256Hash(publicKey[1:]).Bytes()
	return common.BytesToAddress(hash[12:])
}

// RecoverPersonal returns the address that personal-signed msg. sig is a
// 0x-prefixed hex string.
func RecoverPersonal(msg []byte, sig string) (common.Address, error) {
	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, bridgeerr.ErrAccessDenied.New("invalid signature hex")
	}
	if len(sigBytes) != crypto.SignatureLength {
		return common.Address{}, bridgeerr.ErrAccessDenied.Newf("signature length %d", len(sigBytes))
	}

	if sigBytes[64] != 27 && sigBytes[64] != 28 && sigBytes[64] != 0 && sigBytes[64] != 1 {
		return common.Address{}, bridgeerr.ErrAccessDenied.New("wrong signature checksum")
	}
	if sigBytes[64] == 27 || sigBytes[64] == 28 {
		sigBytes[64] = sigBytes[64] - 27
	}

	pub, err := crypto.Ecrecover(PersonalHash(msg).Bytes(), sigBytes)
	if err != nil || len(pub) < 1 {
		return common.Address{}, bridgeerr.ErrAccessDenied.New("cannot decode public key")
	}
	return publicKeyBytesToAddress(pub), nil
}
