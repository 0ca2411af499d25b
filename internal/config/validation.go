package config

import (
	"fmt"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/registry"
)

// ValidateConfig checks the complete configuration. Credentials are not
// checked here: a malformed seed or key is reported when it is loaded.
func ValidateConfig(config *Config) error {
	switch registry.Tier(config.Tier) {
	case registry.TierMain, registry.TierTest, registry.TierDev:
	default:
		return fmt.Errorf("tier must be main, test or dev, got %q", config.Tier)
	}
	if err := validateXRPL(&config.XRPL); err != nil {
		return fmt.Errorf("xrpl config validation failed: %w", err)
	}
	if err := validateEVM(&config.EVM); err != nil {
		return fmt.Errorf("evm config validation failed: %w", err)
	}
	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if len(config.Kafka.Brokers) > 0 && config.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}
	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", config.Log.Level)
	}
	return nil
}

func validateNetwork(network string, family registry.Family) error {
	if network == "" {
		return nil
	}
	e, err := registry.Lookup(network)
	if err != nil {
		return err
	}
	if e.Family != family {
		return fmt.Errorf("network %s is not a %s network", network, family)
	}
	return nil
}

func validateXRPL(c *XRPLConfig) error {
	if err := validateNetwork(c.Network, registry.FamilyXRPL); err != nil {
		return err
	}
	if c.Issuer != "" {
		if err := tx.ValidateXRPLAddress("issuer", c.Issuer); err != nil {
			return err
		}
	}
	if c.MaxFeeDrops < 0 {
		return fmt.Errorf("max_fee_drops must not be negative")
	}
	if c.LedgerOffset == 0 {
		return fmt.Errorf("ledger_offset must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

func validateEVM(c *EVMConfig) error {
	if err := validateNetwork(c.Network, registry.FamilyEVM); err != nil {
		return err
	}
	if c.Contract != "" {
		if err := tx.ValidateEVMAddress("contract", c.Contract); err != nil {
			return err
		}
	}
	if c.Decimals < 0 || c.Decimals > 36 {
		return fmt.Errorf("decimals must be between 0 and 36")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

func validateServer(s *ServerConfig) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port number must be between 1 and 65535")
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}
