package config

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/speedrun-hq/execregistry/pkg/logger"
)

// Config holds the configuration for the registry service
type Config struct {
	APIPort     string
	MetricsPort string
	DBPath      string

	// OwnerAddress controls the privileged configuration entry points.
	OwnerAddress common.Address

	// RegistryAddress is the custody account escrowed funds are held at.
	RegistryAddress common.Address

	// PaymentTokenAddress denominates gas budget and tip reservations.
	PaymentTokenAddress common.Address

	// MessengerAddress is the trusted cross-domain messenger.
	MessengerAddress common.Address

	// ExecutionManagerAddress, if set, is connected at boot. It can also be
	// connected later through the privileged API.
	ExecutionManagerAddress common.Address

	// RPCURL and PrivateKey switch the escrow onto a live chain bank when
	// both are set; otherwise the service runs the in-process bank.
	RPCURL     string
	PrivateKey string

	LoggerConfig LoggerConfig
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	apiPort, err := GetEnvAPIPort()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	rpcURL, err := GetEnvRPCURL()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIPort:                 apiPort,
		MetricsPort:             metricsPort,
		DBPath:                  GetEnvDBPath(),
		OwnerAddress:            GetEnvAddress("OWNER_ADDRESS"),
		RegistryAddress:         GetEnvAddress("REGISTRY_ADDRESS"),
		PaymentTokenAddress:     GetEnvAddress("PAYMENT_TOKEN_ADDRESS"),
		MessengerAddress:        GetEnvAddress("MESSENGER_ADDRESS"),
		ExecutionManagerAddress: GetEnvAddress("EXECUTION_MANAGER_ADDRESS"),
		RPCURL:                  rpcURL,
		PrivateKey:              GetEnv("PRIVATE_KEY"),
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.OwnerAddress == (common.Address{}) {
		return fmt.Errorf("OWNER_ADDRESS environment variable is required")
	}
	if cfg.RegistryAddress == (common.Address{}) {
		return fmt.Errorf("REGISTRY_ADDRESS environment variable is required")
	}
	if cfg.PaymentTokenAddress == (common.Address{}) {
		return fmt.Errorf("PAYMENT_TOKEN_ADDRESS environment variable is required")
	}
	if cfg.MessengerAddress == (common.Address{}) {
		return fmt.Errorf("MESSENGER_ADDRESS environment variable is required")
	}
	if cfg.RPCURL != "" && cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY is required when RPC_URL is set")
	}
	return nil
}
