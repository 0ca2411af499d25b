package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rlusd.toml", `
tier = "main"

[xrpl]
ledger_offset = 10
poll_interval = "500ms"

[evm]
network = "eth-sepolia"

[server]
port = 9000
allowed_origins = ["http://localhost:3000"]

[kafka]
brokers = ["localhost:9092"]

[log]
level = "debug"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, config.GetConfigPath())
	assert.Equal(t, "main", config.Tier)
	// tier default applies where the file names no network
	assert.Equal(t, "xrpl-mainnet", config.XRPL.Network)
	assert.Equal(t, "eth-sepolia", config.EVM.Network)
	assert.EqualValues(t, 10, config.XRPL.LedgerOffset)
	assert.Equal(t, 500*time.Millisecond, config.XRPL.PollInterval)
	assert.EqualValues(t, 2000, config.XRPL.MaxFeeDrops)
	assert.Equal(t, "127.0.0.1:9000", config.Server.Addr())
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Equal(t, []string{"localhost:9092"}, config.Kafka.Brokers)
	assert.Equal(t, "rlusd-events", config.Kafka.Topic)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, config.GetConfigPath())
	assert.Equal(t, "test", config.Tier)
	assert.Equal(t, "xrpl-testnet", config.XRPL.Network)
	assert.Equal(t, "eth-sepolia", config.EVM.Network)
	assert.Equal(t, 2*time.Minute, config.Server.RequestTimeout)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RLUSD_TIER", "dev")
	t.Setenv("RLUSD_XRPL_SEED", "sEdTM1uX8pu2do5XvTnutH6HsouMaM2")
	t.Setenv("RLUSD_ETH_PRIVATE_KEY", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("RLUSD_SERVER_PORT", "9100")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "xrpl-devnet", config.XRPL.Network)
	assert.Equal(t, "eth-holesky", config.EVM.Network)
	assert.Equal(t, "sEdTM1uX8pu2do5XvTnutH6HsouMaM2", config.XRPL.Seed)
	assert.NotEmpty(t, config.EVM.PrivateKey)
	assert.Equal(t, 9100, config.Server.Port)

	redacted := config.Redacted()
	assert.Equal(t, "[set]", redacted.XRPL.Seed)
	assert.Equal(t, "[set]", redacted.EVM.PrivateKey)
	assert.Equal(t, "sEdTM1uX8pu2do5XvTnutH6HsouMaM2", config.XRPL.Seed)
}

func TestPrivateKeyEnvAliases(t *testing.T) {
	const key = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	for _, name := range []string{"RLUSD_EVM_PRIVATE_KEY", "RLUSD_ETH_PRIVATE_KEY"} {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(name, key)

			v := viper.New()
			require.NoError(t, bindEnvAliases(v))
			assert.Equal(t, key, v.GetString("evm.private_key"))

			config, err := LoadConfig("")
			require.NoError(t, err)
			assert.Equal(t, key, config.EVM.PrivateKey)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "RLUSD_TEST_ONLY_VALUE=from-dotenv\n")
	t.Setenv("RLUSD_TEST_ONLY_VALUE", "")
	os.Unsetenv("RLUSD_TEST_ONLY_VALUE")

	require.NoError(t, LoadEnv())
	assert.Equal(t, "from-dotenv", os.Getenv("RLUSD_TEST_ONLY_VALUE"))

	require.Error(t, LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestConfigValidationErrors(t *testing.T) {
	valid := func() Config {
		return Config{
			Tier:   "test",
			XRPL:   XRPLConfig{Network: "xrpl-testnet", LedgerOffset: 20, PollInterval: time.Second},
			EVM:    EVMConfig{Network: "eth-sepolia", PollInterval: time.Second},
			Server: ServerConfig{Port: 8645},
			Log:    LogConfig{Level: "info"},
		}
	}
	c := valid()
	require.NoError(t, ValidateConfig(&c))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tier", func(c *Config) { c.Tier = "prod" }, "tier must be"},
		{"xrpl family", func(c *Config) { c.XRPL.Network = "eth-mainnet" }, "is not a xrpl network"},
		{"unknown evm", func(c *Config) { c.EVM.Network = "bsc" }, "unknown network"},
		{"issuer", func(c *Config) { c.XRPL.Issuer = "not-an-address" }, "issuer"},
		{"contract", func(c *Config) { c.EVM.Contract = "0x12" }, "contract"},
		{"offset", func(c *Config) { c.XRPL.LedgerOffset = 0 }, "ledger_offset"},
		{"port", func(c *Config) { c.Server.Port = 99999 }, "port number must be between 1 and 65535"},
		{"kafka", func(c *Config) { c.Kafka = KafkaConfig{Brokers: []string{"b:9092"}} }, "kafka topic"},
		{"log", func(c *Config) { c.Log.Level = "trace" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := ValidateConfig(&c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, SaveExampleConfig(path))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "xrpl-testnet", config.XRPL.Network)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Empty(t, config.XRPL.Seed)
}
