package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	bridgeerr "goswapbridge/errors"
)

// EnvPrefix prefixes every environment override, e.g. SWAPBRIDGE_SERVER_REDIS_HOST.
const EnvPrefix = "SWAPBRIDGE"

// reading config error is fatal, and exits main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return bridgeerr.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return bridgeerr.Wrapf(err, "decode %s", path)
	}
	return nil
}

// readDotEnv loads .env into the process environment when the file exists.
func readDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return bridgeerr.Wrap(err, "load .env")
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return bridgeerr.Wrap(err, "environment")
	}
	return nil
}

// Load reads the yaml file at path, then .env, then environment overrides,
// and validates the result.
func Load(path string) (*Configuration, error) {
	var cfg Configuration
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := readDotEnv(); err != nil {
		return nil, err
	}
	if err := readEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init loads the configuration into Config and exits the process on error.
func Init(path string) {
	cfg, err := Load(path)
	if err != nil {
		processError(err)
	}
	Config = *cfg
}
