package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goRLUSD/internal/registry"
)

// setDefaults registers every key so environment overrides reach
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("tier", string(registry.TierTest))

	v.SetDefault("xrpl.network", "")
	v.SetDefault("xrpl.endpoint", "")
	v.SetDefault("xrpl.issuer", "")
	v.SetDefault("xrpl.seed", "")
	v.SetDefault("xrpl.max_fee_drops", 2000)
	v.SetDefault("xrpl.ledger_offset", 20)
	v.SetDefault("xrpl.poll_interval", time.Second)
	v.SetDefault("xrpl.cache_size", 1024)

	v.SetDefault("evm.network", "")
	v.SetDefault("evm.endpoint", "")
	v.SetDefault("evm.contract", "")
	v.SetDefault("evm.decimals", 0)
	v.SetDefault("evm.private_key", "")
	v.SetDefault("evm.poll_interval", 2*time.Second)
	v.SetDefault("evm.cache_size", 1024)

	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 8645)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "rlusd-events")

	v.SetDefault("compliance.url", "")
	v.SetDefault("compliance.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)
}

// ApplyNetworkDefaults fills the network names from the official registry
// entries of tier when the configuration leaves them empty. Endpoint,
// issuer and contract are resolved later by the clients from the same
// registry.
func ApplyNetworkDefaults(v *viper.Viper, tier string) {
	if e, err := registry.Official(registry.FamilyXRPL, registry.Tier(tier)); err == nil {
		v.SetDefault("xrpl.network", e.Network)
	}
	if e, err := registry.Official(registry.FamilyEVM, registry.Tier(tier)); err == nil {
		v.SetDefault("evm.network", e.Network)
	}
}
