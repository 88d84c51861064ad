package registry

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerr "goswapbridge/errors"
)

var (
	owner    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stranger = common.HexToAddress("0x2000000000000000000000000000000000000002")
	relayer  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	usdt     = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	v1       = common.HexToAddress("0xa100000000000000000000000000000000000001")
	v2       = common.HexToAddress("0xa200000000000000000000000000000000000002")
	v3       = common.HexToAddress("0xa300000000000000000000000000000000000003")
)

func TestSettersRequireOwner(t *testing.T) {
	r := New(owner)

	setters := map[string]func(caller common.Address) error{
		"withdrawer":  func(c common.Address) error { return r.SetWithdrawer(c, relayer) },
		"pause":       func(c common.Address) error { return r.SetPaused(c, true) },
		"ceiling":     func(c common.Address) error { return r.SetRefundCeiling(c, big.NewInt(10)) },
		"venue":       func(c common.Address) error { return r.SetVenue(c, relayer) },
		"stable":      func(c common.Address) error { return r.SetStableToken(c, usdt) },
		"validators":  func(c common.Address) error { return r.SetValidators(c, []common.Address{v1}, true) },
		"threshold":   func(c common.Address) error { return r.SetThreshold(c, 1) },
		"allowance":   func(c common.Address) error { return r.SetAllowance(c, relayer, usdt, big.NewInt(5)) },
		"token":       func(c common.Address) error { return r.SetWhitelistToken(c, usdt, true) },
		"chains":      func(c common.Address) error { return r.SetWhitelistChains(c, []uint64{56}, true) },
		"transferown": func(c common.Address) error { return r.TransferOwnership(c, owner) },
	}

	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			err := set(stranger)
			require.Error(t, err)
			assert.True(t, bridgeerr.ErrAccessDenied.Is(err))
		})
	}

	// validators must exist before the threshold can be set
	require.NoError(t, setters["validators"](owner))
	for name, set := range setters {
		assert.NoError(t, set(owner), name)
	}
}

func TestTransferOwnership(t *testing.T) {
	r := New(owner)
	require.NoError(t, r.TransferOwnership(owner, stranger))
	assert.Equal(t, stranger, r.Owner())

	err := r.SetPaused(owner, true)
	assert.True(t, bridgeerr.ErrAccessDenied.Is(err))
	assert.NoError(t, r.SetPaused(stranger, true))

	err = r.TransferOwnership(stranger, common.Address{})
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
}

func TestWithdrawerRole(t *testing.T) {
	r := New(owner)
	err := r.RequireWithdrawer(common.Address{})
	assert.True(t, bridgeerr.ErrAccessDenied.Is(err), "unset withdrawer admits nobody")

	require.NoError(t, r.SetWithdrawer(owner, relayer))
	assert.NoError(t, r.RequireWithdrawer(relayer))
	assert.True(t, bridgeerr.ErrAccessDenied.Is(r.RequireWithdrawer(owner)))
}

func TestThresholdBounds(t *testing.T) {
	r := New(owner)

	err := r.SetThreshold(owner, 1)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err), "no validators yet")

	require.NoError(t, r.SetValidators(owner, []common.Address{v1, v2, v3}, true))
	assert.Equal(t, []common.Address{v1, v2, v3}, r.Validators())

	assert.True(t, bridgeerr.ErrInvalidParameter.Is(r.SetThreshold(owner, 0)))
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(r.SetThreshold(owner, 4)))
	require.NoError(t, r.SetThreshold(owner, 2))
	assert.Equal(t, uint32(2), r.Threshold())

	require.NoError(t, r.RemoveValidator(owner, v2))
	assert.Equal(t, []common.Address{v1, v3}, r.Validators())
	assert.False(t, r.IsValidator(v2))

	err = r.RemoveValidator(owner, v1)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err), "would leave 1 validator under threshold 2")
	assert.True(t, r.IsValidator(v1))
}

func TestSetValidatorsRejectsWholeBatch(t *testing.T) {
	r := New(owner)
	err := r.SetValidators(owner, []common.Address{v1, {}}, true)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
	assert.Empty(t, r.Validators())

	require.NoError(t, r.SetValidators(owner, []common.Address{v1, v1, v2}, true))
	assert.Len(t, r.Validators(), 2)
}

func TestAllowanceConsume(t *testing.T) {
	r := New(owner)
	require.NoError(t, r.SetAllowance(owner, relayer, usdt, big.NewInt(100)))

	require.NoError(t, r.ConsumeAllowance(relayer, usdt, big.NewInt(60)))
	assert.Equal(t, int64(40), r.Allowance(relayer, usdt).Int64())

	err := r.ConsumeAllowance(relayer, usdt, big.NewInt(41))
	assert.True(t, bridgeerr.ErrNotRelayerOrInsufficientApproval.Is(err))
	assert.Equal(t, int64(40), r.Allowance(relayer, usdt).Int64(), "rejected, not clamped")

	require.NoError(t, r.ConsumeAllowance(relayer, usdt, big.NewInt(40)))
	assert.Equal(t, int64(0), r.Allowance(relayer, usdt).Int64())

	r.ReleaseAllowance(relayer, usdt, big.NewInt(15))
	assert.Equal(t, int64(15), r.Allowance(relayer, usdt).Int64())

	err = r.ConsumeAllowance(stranger, usdt, big.NewInt(1))
	assert.True(t, bridgeerr.ErrNotRelayerOrInsufficientApproval.Is(err))
}

func TestWhitelist(t *testing.T) {
	r := New(owner)
	assert.True(t, bridgeerr.ErrNotWhitelistedToken.Is(r.RequireWhitelistedToken(usdt)))

	require.NoError(t, r.SetWhitelistToken(owner, usdt, true))
	assert.NoError(t, r.RequireWhitelistedToken(usdt))
	require.NoError(t, r.SetWhitelistToken(owner, usdt, false))
	assert.False(t, r.IsWhitelistedToken(usdt))

	require.NoError(t, r.SetWhitelistChains(owner, []uint64{56, 1, 195}, true))
	assert.True(t, r.IsWhitelistedChain(195))
	require.NoError(t, r.SetWhitelistChains(owner, []uint64{1}, false))
	assert.False(t, r.IsWhitelistedChain(1))

	err := r.SetWhitelistChains(owner, []uint64{5, 0}, true)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
	assert.False(t, r.IsWhitelistedChain(5))
}

func TestPauseLatch(t *testing.T) {
	r := New(owner)
	assert.NoError(t, r.RequireNotPaused())
	require.NoError(t, r.SetPaused(owner, true))
	assert.True(t, bridgeerr.ErrPaused.Is(r.RequireNotPaused()))
	require.NoError(t, r.SetPaused(owner, false))
	assert.NoError(t, r.RequireNotPaused())
}

func TestMemoryReplayLedger(t *testing.T) {
	l := NewMemoryReplayLedger()
	ref := common.HexToHash("0x01")
	fp := common.HexToHash("0xff")

	consumed, err := l.IsConsumed(ref)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, l.Consume(ref, fp))
	err = l.Consume(ref, common.HexToHash("0xee"))
	assert.True(t, bridgeerr.ErrReplayDetected.Is(err))

	got, ok, err := l.Fingerprint(ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fp, got)

	require.NoError(t, l.Release(ref))
	consumed, _ = l.IsConsumed(ref)
	assert.False(t, consumed)
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := New(owner)
	require.NoError(t, r.SetWithdrawer(owner, relayer))
	require.NoError(t, r.SetValidators(owner, []common.Address{v1, v2, v3}, true))
	require.NoError(t, r.SetThreshold(owner, 2))
	require.NoError(t, r.SetAllowance(owner, relayer, usdt, big.NewInt(1000)))
	require.NoError(t, r.SetWhitelistToken(owner, usdt, true))
	require.NoError(t, r.SetWhitelistChains(owner, []uint64{56, 1}, true))
	require.NoError(t, r.SetRefundCeiling(owner, big.NewInt(10_000_000_000)))
	require.NoError(t, r.SetStableToken(owner, usdt))
	require.NoError(t, r.SetPaused(owner, true))

	raw, err := json.Marshal(r.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	restored, err := Restore(&snap)
	require.NoError(t, err)

	assert.Equal(t, r.Snapshot(), restored.Snapshot())
	assert.Equal(t, []uint64{1, 56}, restored.Snapshot().Chains)
	assert.True(t, restored.Paused())
	assert.Equal(t, int64(1000), restored.Allowance(relayer, usdt).Int64())
}

func TestRestoreRejectsBadThreshold(t *testing.T) {
	_, err := Restore(&Snapshot{Owner: owner, Validators: []common.Address{v1}, Threshold: 2})
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
}

func TestMemoryRequestLedger(t *testing.T) {
	l := NewMemoryRequestLedger()
	clock := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return clock }
	key := common.HexToHash("0x0b0d")

	require.NoError(t, l.Claim(key, time.Minute))
	err := l.Claim(key, time.Minute)
	assert.True(t, bridgeerr.ErrReplayDetected.Is(err))

	require.NoError(t, l.Claim(common.HexToHash("0x0b0e"), time.Minute))

	// an expired claim frees the key
	clock = clock.Add(time.Minute)
	require.NoError(t, l.Claim(key, time.Minute))
	assert.Len(t, l.claims, 1)

	err = l.Claim(common.HexToHash("0x0b0f"), 0)
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(err))
}
