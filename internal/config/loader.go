package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RLUSD_XRPL_SEED.
const EnvPrefix = "RLUSD"

// DefaultConfigPath is read when it exists and no path is given.
const DefaultConfigPath = "rlusd.toml"

// LoadConfig loads configuration in priority order:
// 1. Default values
// 2. Configuration file (TOML); an explicit path must exist
// 3. Environment variables (RLUSD_ prefix)
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	if err := loadMainConfig(v, path, explicit); err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	// network names depend on the tier, which may come from the file or env
	ApplyNetworkDefaults(v, v.GetString("tier"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v.ConfigFileUsed() != "" {
		config.configPath = v.ConfigFileUsed()
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// envAliases lists keys also read from a second variable name. The first
// name listed wins when both are set.
var envAliases = map[string][]string{
	// the contract-ledger key is also accepted under its common name
	"evm.private_key": {EnvPrefix + "_EVM_PRIVATE_KEY", EnvPrefix + "_ETH_PRIVATE_KEY"},
}

func bindEnvAliases(v *viper.Viper) error {
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// loadMainConfig reads the TOML file at path. A missing default file is
// not an error.
func loadMainConfig(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if required {
			return fmt.Errorf("config file does not exist: %s", path)
		}
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads credentials from dotenv files into the process
// environment without overriding variables already set. With no files it
// reads ".env" if present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// SaveExampleConfig writes an example configuration file. Secrets are
// never written.
func SaveExampleConfig(path string) error {
	v := viper.New()
	for key, value := range exampleConfig() {
		v.Set(key, value)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}

func exampleConfig() map[string]any {
	return map[string]any{
		"tier": "test",

		"xrpl.network":       "xrpl-testnet",
		"xrpl.max_fee_drops": 2000,
		"xrpl.ledger_offset": 20,
		"xrpl.poll_interval": "1s",

		"evm.network":       "eth-sepolia",
		"evm.poll_interval": "2s",

		"server.bind":            "127.0.0.1",
		"server.port":            8645,
		"server.allowed_origins": []string{"http://localhost:3000"},
		"server.request_timeout": "2m",

		"kafka.brokers": []string{},
		"kafka.topic":   "rlusd-events",

		"compliance.url":     "",
		"compliance.timeout": "10s",

		"log.level": "info",
	}
}
