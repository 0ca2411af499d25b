package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete rlusd configuration. Values come from defaults,
// then the TOML file, then RLUSD_* environment variables.
type Config struct {
	// Tier selects the official networks when none are named: main,
	// test or dev.
	Tier string `toml:"tier" mapstructure:"tier"`

	XRPL       XRPLConfig       `toml:"xrpl" mapstructure:"xrpl"`
	EVM        EVMConfig        `toml:"evm" mapstructure:"evm"`
	Server     ServerConfig     `toml:"server" mapstructure:"server"`
	Kafka      KafkaConfig      `toml:"kafka" mapstructure:"kafka"`
	Compliance ComplianceConfig `toml:"compliance" mapstructure:"compliance"`
	Log        LogConfig        `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// XRPLConfig configures the consensus-ledger client.
type XRPLConfig struct {
	Network  string `toml:"network" mapstructure:"network"`
	Endpoint string `toml:"endpoint" mapstructure:"endpoint"`
	Issuer   string `toml:"issuer" mapstructure:"issuer"`
	// Seed is a secret; set it through RLUSD_XRPL_SEED or a .env file.
	Seed         string        `toml:"-" mapstructure:"seed"`
	MaxFeeDrops  int64         `toml:"max_fee_drops" mapstructure:"max_fee_drops"`
	LedgerOffset uint32        `toml:"ledger_offset" mapstructure:"ledger_offset"`
	PollInterval time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	CacheSize    int           `toml:"cache_size" mapstructure:"cache_size"`
}

// EVMConfig configures the contract-ledger client.
type EVMConfig struct {
	Network  string `toml:"network" mapstructure:"network"`
	Endpoint string `toml:"endpoint" mapstructure:"endpoint"`
	Contract string `toml:"contract" mapstructure:"contract"`
	Decimals int32  `toml:"decimals" mapstructure:"decimals"`
	// PrivateKey is a secret; set it through RLUSD_EVM_PRIVATE_KEY (or
	// RLUSD_ETH_PRIVATE_KEY) or a .env file.
	PrivateKey   string        `toml:"-" mapstructure:"private_key"`
	PollInterval time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	CacheSize    int           `toml:"cache_size" mapstructure:"cache_size"`
}

// ServerConfig configures the JSON-RPC surface started by "rlusd serve".
type ServerConfig struct {
	Bind           string        `toml:"bind" mapstructure:"bind"`
	Port           int           `toml:"port" mapstructure:"port"`
	AllowedOrigins []string      `toml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
}

// KafkaConfig enables publishing subscription events when Brokers is set.
type KafkaConfig struct {
	Brokers []string `toml:"brokers" mapstructure:"brokers"`
	Topic   string   `toml:"topic" mapstructure:"topic"`
}

type ComplianceConfig struct {
	URL     string        `toml:"url" mapstructure:"url"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	// File, when set, receives a JSON copy of every entry.
	File string `toml:"file" mapstructure:"file"`
	// Development switches to the human-readable console encoder.
	Development bool `toml:"development" mapstructure:"development"`
}

// GetConfigPath returns the file the configuration was read from, if any.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Addr is the listen address of the server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// Redacted returns a copy safe to print: secrets are replaced by a marker
// that only tells whether they are set.
func (c Config) Redacted() Config {
	c.XRPL.Seed = redact(c.XRPL.Seed)
	c.EVM.PrivateKey = redact(c.EVM.PrivateKey)
	return c
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[set]"
}
