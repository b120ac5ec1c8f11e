package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/orbitalfi/intents-core/internal/adapters/bridgeclient"
	"github.com/orbitalfi/intents-core/internal/adapters/btcchain"
	"github.com/orbitalfi/intents-core/internal/adapters/sigrecover"
	"github.com/orbitalfi/intents-core/internal/adapters/systime"
	"github.com/orbitalfi/intents-core/internal/api"
	"github.com/orbitalfi/intents-core/internal/executor"
	"github.com/orbitalfi/intents-core/internal/intent"
	"github.com/orbitalfi/intents-core/internal/store"
	"github.com/orbitalfi/intents-core/orbital"
)

func main() {
	log.Println("Starting orbital intents engine...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ──────────────────────────────────────────────────────────────────

	dbURL := requireEnv("DATABASE_URL")

	ctx := context.Background()
	persist, err := store.Connect(ctx, dbURL, "intents_core_kv")
	if err != nil {
		log.Printf("Warning: Failed to connect to PostgreSQL, continuing without durable storage. Error: %v", err)
	} else {
		defer persist.Close()
		if err := persist.InitSchema(ctx); err != nil {
			log.Printf("Warning: DB schema init failed: %v", err)
		}
	}
	hotCache := store.NewMemCache()

	recoverer := sigrecover.New()

	sourceChainID := requireUint64Env("SOURCE_CHAIN_ID")
	destChainID := requireUint64Env("DEST_CHAIN_ID")

	sourceChain, err := btcchain.Dial(btcchain.Config{
		ChainID: sourceChainID,
		Host:    getEnvOrDefault("SOURCE_RPC_HOST", "localhost:8332"),
		User:    requireEnv("SOURCE_RPC_USER"),
		Pass:    requireEnv("SOURCE_RPC_PASS"),
	})
	if err != nil {
		log.Fatalf("FATAL: failed to dial source chain RPC: %v", err)
	}
	defer sourceChain.Shutdown()

	destChain, err := btcchain.Dial(btcchain.Config{
		ChainID: destChainID,
		Host:    getEnvOrDefault("DEST_RPC_HOST", "localhost:8333"),
		User:    requireEnv("DEST_RPC_USER"),
		Pass:    requireEnv("DEST_RPC_PASS"),
	})
	if err != nil {
		log.Fatalf("FATAL: failed to dial dest chain RPC: %v", err)
	}
	defer destChain.Shutdown()

	bridge := bridgeclient.New(
		getEnvOrDefault("BRIDGE_PROTOCOL", "custom"),
		[]uint64{sourceChainID, destChainID},
		sourceChain,
		recoverer,
	)

	minBond, err := uint256.FromDecimal(getEnvOrDefault("MIN_SOLVER_BOND", "1000000"))
	if err != nil {
		log.Fatalf("FATAL: MIN_SOLVER_BOND is not a valid decimal integer: %v", err)
	}

	engine := orbital.New(orbital.Config{
		Domain: intent.DomainSeparator{
			Name:    getEnvOrDefault("DOMAIN_NAME", "orbital-intents"),
			Version: getEnvOrDefault("DOMAIN_VERSION", "1"),
			ChainID: sourceChainID,
		},
		Recover: recoverer,
		MinBond: minBond,
		Cache:   hotCache,
		Executor: executor.Deps{
			SourceChain:              sourceChain,
			DestChain:                destChain,
			Bridge:                   bridge,
			Clock:                    systime.Clock{},
			Sleeper:                  systime.Sleeper{},
			Rng:                      systime.Rng{},
			SourceConfirmationBlocks: requireUint64Env("SOURCE_CONFIRMATION_BLOCKS"),
			DestConfirmationBlocks:   requireUint64Env("DEST_CONFIRMATION_BLOCKS"),
		},
	})

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(engine, wsHub)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

func requireUint64Env(key string) uint64 {
	val, err := strconv.ParseUint(requireEnv(key), 10, 64)
	if err != nil {
		log.Fatalf("FATAL: %s must be a non-negative integer: %v", key, err)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
