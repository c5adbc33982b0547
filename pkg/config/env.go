package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/logger"
)

const (
	// DefaultAPIPort defines the default port for the request API server
	DefaultAPIPort = "8081"

	// DefaultMetricsPort defines the default port for the health and metrics server
	DefaultMetricsPort = "8080"

	// DefaultDBPath defines the default path for the request journal database
	DefaultDBPath = "execregistry.db"

	// DefaultLogLevel defines the default logging level
	DefaultLogLevel = "info"

	// DefaultLogColoring defines whether log coloring is enabled by default
	DefaultLogColoring = true
)

// GetEnv returns the raw value of an environment variable
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvAddress returns an address from environment variables, zero if unset
func GetEnvAddress(key string) common.Address {
	if val := os.Getenv(key); val != "" {
		return common.HexToAddress(val)
	}
	return common.Address{}
}

// GetEnvAPIPort returns the configured API port or the default
func GetEnvAPIPort() (string, error) {
	return getEnvPort("API_PORT", DefaultAPIPort)
}

// GetEnvMetricsPort returns the configured metrics port or the default
func GetEnvMetricsPort() (string, error) {
	return getEnvPort("METRICS_PORT", DefaultMetricsPort)
}

// GetEnvDBPath returns the journal database path. An explicit empty value
// ("DB_PATH=") disables the journal.
func GetEnvDBPath() string {
	if val, ok := os.LookupEnv("DB_PATH"); ok {
		return val
	}
	return DefaultDBPath
}

// GetEnvLogLevel returns the configured log level or the default
func GetEnvLogLevel() (logger.Level, error) {
	val := os.Getenv("LOG_LEVEL")
	if val == "" {
		val = DefaultLogLevel
	}
	switch val {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %s", val)
	}
}

// GetEnvLogColoring returns whether log coloring is enabled
func GetEnvLogColoring() (bool, error) {
	val := os.Getenv("LOG_COLORING")
	if val == "" {
		return DefaultLogColoring, nil
	}
	coloring, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s", val)
	}
	return coloring, nil
}

// GetEnvRPCURL validates and returns the RPC URL if configured
func GetEnvRPCURL() (string, error) {
	val := os.Getenv("RPC_URL")
	if val == "" {
		return "", nil
	}
	if _, err := url.ParseRequestURI(val); err != nil {
		return "", fmt.Errorf("invalid RPC_URL value: %s", val)
	}
	return val, nil
}

func getEnvPort(key, fallback string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(val)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid %s value: %s", key, val)
	}
	return val, nil
}
