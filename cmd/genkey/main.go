package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/database"
	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
)

// genkey mints an API key. With -tenant it also stores the hash so the
// key works immediately; otherwise it just prints the triple.
func main() {
	env := flag.String("env", domain.EnvLive, "Key environment: live or test")
	tenant := flag.String("tenant", "", "Tenant UUID to attach the key to (requires DATABASE_URL)")
	name := flag.String("name", "default", "Key name")
	flag.Parse()

	key, hash, prefix, err := domain.GenerateAPIKey(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if *tenant != "" {
		tenantID, err := uuid.Parse(*tenant)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error: tenant must be a valid UUID")
			os.Exit(1)
		}

		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			fmt.Fprintln(os.Stderr, "Error: DATABASE_URL is required to store the key")
			os.Exit(1)
		}

		ctx := context.Background()
		pool, err := database.NewPgxPool(ctx, dsn)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer pool.Close()

		apiKey := &domain.APIKey{
			TenantID:    tenantID,
			Name:        *name,
			KeyHash:     hash,
			KeyPrefix:   prefix,
			Environment: *env,
			IsActive:    true,
		}
		if err := repository.NewAPIKeyRepository(pool).Create(ctx, apiKey); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Printf("Stored key %s for tenant %s\n", apiKey.ID, tenantID)
	}

	fmt.Printf("KEY=%s\nHASH=%s\nPREFIX=%s\n", key, hash, prefix)
}
