package config

import (
	"math/big"
	"time"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	bridgeerr "goswapbridge/errors"
)

type Configuration struct {
	// Server config
	Server struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		UseSSL   bool   `yaml:"ssl"`
		CertFile string `yaml:"cert_file" split_words:"true"`
		KeyFile  string `yaml:"key_file" split_words:"true"`
		LogLevel string `yaml:"log_level" split_words:"true"`
		// Store selects persistence: "memory", "redis" or "leveldb"
		Store       string `yaml:"store"`
		RedisPort   int    `yaml:"redis_port" split_words:"true"`
		RedisHost   string `yaml:"redis_host" split_words:"true"`
		LevelDBPath string `yaml:"leveldb_path" envconfig:"LEVELDB_PATH"`
	} `yaml:"server"`
	// Bridge instance config
	Bridge struct {
		ChainID       uint64 `yaml:"chain_id" split_words:"true"`
		Address       string `yaml:"address"`
		Owner         string `yaml:"owner"`
		DomainName    string `yaml:"domain_name" split_words:"true"`
		DomainVersion string `yaml:"domain_version" split_words:"true"`
		StableToken   string `yaml:"stable_token" split_words:"true"`
		// StableDecimals scales RefundCeiling, given in whole stable coins
		StableDecimals int32  `yaml:"stable_decimals" split_words:"true"`
		RefundCeiling  string `yaml:"refund_ceiling" split_words:"true"`
	} `yaml:"bridge"`
	// Swap venue config
	Venue struct {
		Address        string `yaml:"address"`
		RPCURL         string `yaml:"rpc_url" envconfig:"RPC_URL"`
		TimeoutSeconds int    `yaml:"timeout_seconds" split_words:"true"`
		GasLimit       uint64 `yaml:"gas_limit" split_words:"true"`
	} `yaml:"venue"`
	// EVM-related config, used for custody reconciliation and funding
	EVM struct {
		RPCList           []string `yaml:"rpc_list" envconfig:"RPC_LIST"`
		Tokens            []string `yaml:"tokens"`
		ReconcileInterval int      `yaml:"reconcile_interval" split_words:"true"`
		// Confirmations a deposit needs before it is credited
		Confirmations uint64 `yaml:"confirmations"`
	} `yaml:"EVM"`
}

var Config Configuration

const (
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreLevelDB = "leveldb"
)

// Validate checks the configuration and fills defaults.
func (c *Configuration) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Store == "" {
		c.Server.Store = StoreMemory
	}
	switch c.Server.Store {
	case StoreMemory, StoreRedis, StoreLevelDB:
	default:
		return bridgeerr.ErrInvalidParameter.Newf("unknown store %q", c.Server.Store)
	}
	if c.Server.Store == StoreLevelDB && c.Server.LevelDBPath == "" {
		c.Server.LevelDBPath = "db"
	}
	if c.Bridge.ChainID == 0 {
		return bridgeerr.ErrInvalidParameter.New("bridge.chain_id is required")
	}

	required := map[string]string{
		"bridge.address": c.Bridge.Address,
		"bridge.owner":   c.Bridge.Owner,
	}
	for name, value := range required {
		if _, err := ParseAddress(value); err != nil {
			return bridgeerr.Wrapf(err, "%s", name)
		}
	}
	optional := map[string]string{
		"bridge.stable_token": c.Bridge.StableToken,
		"venue.address":       c.Venue.Address,
	}
	for name, value := range optional {
		if value == "" {
			continue
		}
		if _, err := ParseAddress(value); err != nil {
			return bridgeerr.Wrapf(err, "%s", name)
		}
	}
	for _, token := range c.EVM.Tokens {
		if _, err := ParseAddress(token); err != nil {
			return bridgeerr.Wrapf(err, "EVM.tokens")
		}
	}
	if _, err := c.RefundCeilingWei(); err != nil {
		return err
	}
	if c.EVM.ReconcileInterval == 0 {
		c.EVM.ReconcileInterval = 60
	}
	if c.EVM.Confirmations == 0 {
		c.EVM.Confirmations = 12
	}
	return nil
}

// ParseAddress accepts a 0x-prefixed hex address and rejects the zero
// address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, bridgeerr.ErrInvalidParameter.Newf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	if err := ethav.Validate(addr.Hex()); err != nil {
		return common.Address{}, bridgeerr.Wrap(bridgeerr.ErrInvalidParameter, err.Error())
	}
	if addr == (common.Address{}) {
		return common.Address{}, bridgeerr.ErrInvalidParameter.New("zero address")
	}
	return addr, nil
}

// RefundCeilingWei converts the human-readable refund ceiling into base
// units of the stable token. An empty ceiling is zero.
func (c *Configuration) RefundCeilingWei() (*big.Int, error) {
	if c.Bridge.RefundCeiling == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(c.Bridge.RefundCeiling)
	if err != nil {
		return nil, bridgeerr.Wrapf(bridgeerr.ErrInvalidParameter, "refund_ceiling %q", c.Bridge.RefundCeiling)
	}
	if d.IsNegative() {
		return nil, bridgeerr.ErrInvalidParameter.New("negative refund_ceiling")
	}
	scaled := d.Shift(c.Bridge.StableDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, bridgeerr.ErrInvalidParameter.Newf("refund_ceiling %s has more than %d decimals", d, c.Bridge.StableDecimals)
	}
	return scaled.BigInt(), nil
}

func (c *Configuration) VenueTimeout() time.Duration {
	return time.Duration(c.Venue.TimeoutSeconds) * time.Second
}

func (c *Configuration) ReconcileEvery() time.Duration {
	return time.Duration(c.EVM.ReconcileInterval) * time.Second
}
