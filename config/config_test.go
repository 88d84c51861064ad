package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerr "goswapbridge/errors"
)

const sampleYAML = `
server:
  port: 9090
  store: redis
  redis_host: localhost
  redis_port: 6379
bridge:
  chain_id: 8453
  address: "0x7645f840A483721B4a48dC1D97566AE87DF0A612"
  owner: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
  stable_token: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
  stable_decimals: 6
  refund_ceiling: "10000"
venue:
  address: "0x2626664c2603336E57B271c5C0b26F421741e481"
  timeout_seconds: 5
EVM:
  rpc_list:
    - https://mainnet.base.org
  tokens:
    - "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("SWAPBRIDGE_SERVER_REDIS_HOST", "redis.internal")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StoreRedis, cfg.Server.Store)
	assert.Equal(t, "redis.internal", cfg.Server.RedisHost, "env overrides the file")
	assert.Equal(t, 6379, cfg.Server.RedisPort)
	assert.Equal(t, uint64(8453), cfg.Bridge.ChainID)
	assert.Equal(t, []string{"https://mainnet.base.org"}, cfg.EVM.RPCList)
	assert.Equal(t, 60, cfg.EVM.ReconcileInterval, "default interval")
	assert.Equal(t, uint64(12), cfg.EVM.Confirmations, "default confirmations")

	ceiling, err := cfg.RefundCeilingWei()
	require.NoError(t, err)
	assert.Equal(t, "10000000000", ceiling.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	bad := *cfg
	bad.Bridge.Owner = "0x1234"
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(bad.Validate()))

	bad = *cfg
	bad.Bridge.Address = common.Address{}.Hex()
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(bad.Validate()))

	bad = *cfg
	bad.Server.Store = "etcd"
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(bad.Validate()))

	bad = *cfg
	bad.Bridge.ChainID = 0
	assert.True(t, bridgeerr.ErrInvalidParameter.Is(bad.Validate()))
}

func TestRefundCeilingWei(t *testing.T) {
	cases := []struct {
		value    string
		decimals int32
		want     string
		fails    bool
	}{
		{"", 6, "0", false},
		{"1.5", 6, "1500000", false},
		{"250", 18, "250000000000000000000", false},
		{"0.0000001", 6, "", true},
		{"-1", 6, "", true},
		{"ten", 6, "", true},
	}
	for _, tc := range cases {
		var cfg Configuration
		cfg.Bridge.RefundCeiling = tc.value
		cfg.Bridge.StableDecimals = tc.decimals
		got, err := cfg.RefundCeilingWei()
		if tc.fails {
			assert.True(t, bridgeerr.ErrInvalidParameter.Is(err), tc.value)
			continue
		}
		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.want, got.String(), tc.value)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), addr)

	_, err = ParseAddress("833589fcd6edb6e08f4c7c32d4f71b54bda0291")
	assert.Error(t, err)
}
