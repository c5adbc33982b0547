package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OWNER_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("REGISTRY_ADDRESS", "0x2222222222222222222222222222222222222222")
	t.Setenv("PAYMENT_TOKEN_ADDRESS", "0x3333333333333333333333333333333333333333")
	t.Setenv("MESSENGER_ADDRESS", "0x4444444444444444444444444444444444444444")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, logger.InfoLevel, cfg.LoggerConfig.Level)
	assert.True(t, cfg.LoggerConfig.Coloring)
	assert.Equal(t, "", cfg.RPCURL)
	assert.Equal(t, common.Address{}, cfg.ExecutionManagerAddress)
}

func TestLoadConfigMissingRequiredAddresses(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OWNER_ADDRESS", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "OWNER_ADDRESS")
}

func TestLoadConfigRPCURLRequiresPrivateKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RPC_URL", "https://rpc.example.com")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "PRIVATE_KEY")

	t.Setenv("PRIVATE_KEY", "deadbeef")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
}

func TestGetEnvDBPathExplicitEmptyDisablesJournal(t *testing.T) {
	t.Setenv("DB_PATH", "")
	assert.Equal(t, "", GetEnvDBPath())

	t.Setenv("DB_PATH", "/tmp/reg.db")
	assert.Equal(t, "/tmp/reg.db", GetEnvDBPath())
}

func TestGetEnvLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	level, err := GetEnvLogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, level)

	t.Setenv("LOG_LEVEL", "verbose")
	_, err = GetEnvLogLevel()
	assert.Error(t, err)
}

func TestGetEnvPortValidation(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	port, err := GetEnvAPIPort()
	require.NoError(t, err)
	assert.Equal(t, "9090", port)

	t.Setenv("API_PORT", "not-a-port")
	_, err = GetEnvAPIPort()
	assert.Error(t, err)

	t.Setenv("API_PORT", "70000")
	_, err = GetEnvAPIPort()
	assert.Error(t, err)
}

func TestGetEnvRPCURLValidation(t *testing.T) {
	t.Setenv("RPC_URL", "://bad")
	_, err := GetEnvRPCURL()
	assert.Error(t, err)
}
