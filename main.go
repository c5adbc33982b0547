package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/speedrun-hq/execregistry/pkg/api"
	"github.com/speedrun-hq/execregistry/pkg/auth"
	"github.com/speedrun-hq/execregistry/pkg/clock"
	"github.com/speedrun-hq/execregistry/pkg/config"
	"github.com/speedrun-hq/execregistry/pkg/escrow"
	"github.com/speedrun-hq/execregistry/pkg/health"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/registry"
	"github.com/speedrun-hq/execregistry/pkg/store"
	"github.com/speedrun-hq/execregistry/pkg/xdomain"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the token bank: a live chain when RPC credentials are configured,
	// otherwise the in-process ledger bank.
	bank, custody, err := buildBank(cfg)
	if err != nil {
		log.Fatalf("Failed to set up token bank: %v", err)
	}

	ledger := escrow.NewLedger(bank, cfg.PaymentTokenAddress, custody, lg)
	gate := auth.NewGate(cfg.OwnerAddress, cfg.RegistryAddress)
	link := xdomain.NewLink(cfg.MessengerAddress)

	// Open the request journal unless disabled
	var journal *store.SQLiteStore
	if cfg.DBPath != "" {
		journal, err = store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open request journal: %v", err)
		}
		defer journal.Close()
	}

	reg := registry.New(ledger, gate, link, clock.System{}, journalOrNil(journal), lg)

	if cfg.ExecutionManagerAddress != (common.Address{}) {
		if err := reg.ConnectExecutionManager(cfg.OwnerAddress, cfg.ExecutionManagerAddress); err != nil {
			log.Fatalf("Failed to connect execution manager: %v", err)
		}
	}

	// Start the cross-domain relay worker
	relay := xdomain.NewRelay(reg, lg)
	go relay.Start(ctx)

	// Start health monitoring server
	healthServer := health.NewServer(cfg.MetricsPort, reg, journalReady(journal))
	go healthServer.Start()

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Println("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	// Start the API server
	log.Println("Starting the registry service...")
	apiServer := api.NewServer(reg, journal, lg)
	if err := apiServer.Start(ctx, cfg.APIPort); err != nil {
		log.Fatalf("API server error: %v", err)
	}
}

// buildBank returns the configured token bank and the custody address
// escrowed funds are held at.
func buildBank(cfg *config.Config) (escrow.Bank, common.Address, error) {
	if cfg.RPCURL == "" {
		return escrow.NewMemoryBank(cfg.RegistryAddress), cfg.RegistryAddress, nil
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, common.Address{}, err
	}

	privateKey, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, common.Address{}, err
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, common.Address{}, err
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, common.Address{}, err
	}

	bank, err := escrow.NewChainBank(client, txOpts)
	if err != nil {
		return nil, common.Address{}, err
	}
	return bank, txOpts.From, nil
}

// journalOrNil avoids storing a typed nil in the registry's Journal field.
func journalOrNil(journal *store.SQLiteStore) registry.Journal {
	if journal == nil {
		return nil
	}
	return journal
}

// journalReady reports journal reachability for the readiness endpoint.
func journalReady(journal *store.SQLiteStore) func() bool {
	if journal == nil {
		return nil
	}
	return func() bool { return journal.Ping() == nil }
}
