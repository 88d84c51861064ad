package signer

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerr "goswapbridge/errors"
	"goswapbridge/types"
)

type staticSet struct {
	members   map[common.Address]bool
	threshold uint32
}

func (s staticSet) IsValidator(a common.Address) bool { return s.members[a] }
func (s staticSet) Threshold() uint32                 { return s.threshold }

func mustKey(t *testing.T, hex string) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.HexToECDSA(hex)
	require.NoError(t, err)
	return k
}

func sign(t *testing.T, key *ecdsa.PrivateKey, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	return sig
}

var domain = Domain{
	Name:              "OmnichainSwapProxy",
	Version:           "1",
	ChainID:           8453,
	VerifyingContract: common.HexToAddress("0x7645f840A483721B4a48dC1D97566AE87DF0A612"),
}

func sampleSettlement() *types.SettlementRequest {
	return &types.SettlementRequest{
		SrcToken:    common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		DstToken:    common.HexToAddress("0x4200000000000000000000000000000000000006"),
		To:          common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"),
		Amount:      big.NewInt(1_000_000),
		FromChainID: 56,
		DstChainID:  8453,
		ReferenceID: common.HexToHash("0xabc1"),
	}
}

func TestDigestIsDeterministicAndFieldBound(t *testing.T) {
	req := sampleSettlement()
	d1, err := domain.SwapDigest(req)
	require.NoError(t, err)
	d2, err := domain.SwapDigest(sampleSettlement())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	mutations := map[string]func(r *types.SettlementRequest){
		"amount":    func(r *types.SettlementRequest) { r.Amount = big.NewInt(1_000_001) },
		"to":        func(r *types.SettlementRequest) { r.To = common.HexToAddress("0x01") },
		"fromChain": func(r *types.SettlementRequest) { r.FromChainID = 1 },
		"dstChain":  func(r *types.SettlementRequest) { r.DstChainID = 1 },
		"reference": func(r *types.SettlementRequest) { r.ReferenceID = common.HexToHash("0xabc2") },
		"dstToken":  func(r *types.SettlementRequest) { r.DstToken = r.SrcToken },
	}
	for name, mutate := range mutations {
		r := sampleSettlement()
		mutate(r)
		d, err := domain.SwapDigest(r)
		require.NoError(t, err)
		assert.NotEqual(t, d1, d, name)
	}
}

func TestDomainBindsChainAndContract(t *testing.T) {
	base, err := domain.SwapDigest(sampleSettlement())
	require.NoError(t, err)

	other := domain
	other.ChainID = 56
	d, err := other.SwapDigest(sampleSettlement())
	require.NoError(t, err)
	assert.NotEqual(t, base, d)

	other = domain
	other.VerifyingContract = common.HexToAddress("0x8aab583A03578d20F615f2DE2366b6b475040A24")
	d, err = other.SwapDigest(sampleSettlement())
	require.NoError(t, err)
	assert.NotEqual(t, base, d)

	sep1, err := domain.Separator()
	require.NoError(t, err)
	sep2, err := other.Separator()
	require.NoError(t, err)
	assert.NotEqual(t, sep1, sep2)
}

func TestActionKindsDoNotCollide(t *testing.T) {
	token := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	to := common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	ref := common.HexToHash("0x01")

	refund, err := domain.RefundDigest(&types.RefundRequest{Token: token, To: to, Amount: big.NewInt(5), ReferenceID: ref})
	require.NoError(t, err)
	withdraw, err := domain.WithdrawDigest(&types.WithdrawalRequest{Token: token, To: to, Amount: big.NewInt(5), ReferenceID: ref})
	require.NoError(t, err)
	assert.NotEqual(t, refund, withdraw)

	_, err = domain.Digest("EIP712Domain", nil)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
	_, err = domain.Digest("Unknown", nil)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
}

func TestQuorumScenarios(t *testing.T) {
	k1 := mustKey(t, "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	k2 := mustKey(t, "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a")
	k3 := mustKey(t, "7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6")
	outsider := mustKey(t, "47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a")

	set := staticSet{
		members: map[common.Address]bool{
			crypto.PubkeyToAddress(k1.PublicKey): true,
			crypto.PubkeyToAddress(k2.PublicKey): true,
			crypto.PubkeyToAddress(k3.PublicKey): true,
		},
		threshold: 2,
	}

	digest, err := domain.SwapDigest(sampleSettlement())
	require.NoError(t, err)

	s1, s2, s3 := sign(t, k1, digest), sign(t, k2, digest), sign(t, k3, digest)

	signers, err := VerifyQuorum(set, digest, [][]byte{s1, s2})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{crypto.PubkeyToAddress(k1.PublicKey), crypto.PubkeyToAddress(k2.PublicKey)}, signers)

	_, err = VerifyQuorum(set, digest, [][]byte{s3, s1})
	assert.NoError(t, err, "order does not matter")

	_, err = VerifyQuorum(set, digest, [][]byte{s1, s2, s3})
	assert.NoError(t, err, "more than threshold is fine")

	rejected := map[string][][]byte{
		"same signer twice": {s1, s1},
		"below threshold":   {s1},
		"none":              nil,
		"outsider":          {s1, sign(t, outsider, digest)},
		"truncated":         {s1, s2[:64]},
	}
	for name, sigs := range rejected {
		_, err := VerifyQuorum(set, digest, sigs)
		assert.True(t, bridgeerr.ErrNotRelayerOrInsufficientApproval.Is(err), name)
	}

	other := sampleSettlement()
	other.Amount = big.NewInt(2)
	otherDigest, err := domain.SwapDigest(other)
	require.NoError(t, err)
	_, err = VerifyQuorum(set, otherDigest, [][]byte{s1, s2})
	assert.Error(t, err, "signatures over different fields recover to strangers")

	set.threshold = 0
	_, err = VerifyQuorum(set, digest, [][]byte{s1, s2})
	assert.True(t, bridgeerr.ErrNotRelayerOrInsufficientApproval.Is(err))
}

func TestRecoverSignerAcceptsLegacyV(t *testing.T) {
	k := mustKey(t, "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	digest := crypto.Keccak256Hash([]byte("digest"))
	sig := sign(t, k, digest)
	sig[64] += 27

	addr, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(k.PublicKey), addr)
	assert.GreaterOrEqual(t, sig[64], byte(27), "input is left untouched")
}

func TestRecoverPersonal(t *testing.T) {
	k := mustKey(t, "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	body := []byte(`{"amount":"1"}`)
	sig, err := crypto.Sign(PersonalHash(body).Bytes(), k)
	require.NoError(t, err)
	sig[64] += 27

	addr, err := RecoverPersonal(body, hexutil.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(k.PublicKey), addr)

	_, err = RecoverPersonal(body, "0xzz")
	assert.True(t, bridgeerr.ErrAccessDenied.Is(err))

	sig[64] = 9
	_, err = RecoverPersonal(body, hexutil.Encode(sig))
	assert.True(t, bridgeerr.ErrAccessDenied.Is(err))
}
