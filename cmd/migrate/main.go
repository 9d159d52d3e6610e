package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/elskow/assessgate/internal/migration"
	"github.com/elskow/assessgate/internal/server"
)

func main() {
	command := flag.String("command", "up", "migration command (up/down/down-to/status/version/reset)")
	target := flag.String("version", "", "target version for down-to")
	flag.Parse()

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", server.EnvDevelopment)
	}

	// Load config
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create migrator
	migrator, err := migration.NewMigrator(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer migrator.Close()

	ctx := context.Background()

	// Run migration command
	switch *command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Successfully ran migrations")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		log.Println("Successfully rolled back migrations")

	case "down-to":
		version, err := strconv.ParseInt(*target, 10, 64)
		if err != nil {
			log.Fatalf("Invalid -version %q: %v", *target, err)
		}
		if err := migrator.DownTo(ctx, version); err != nil {
			log.Fatalf("Failed to migrate down: %v", err)
		}
		log.Printf("Successfully migrated down to version %d", version)

	case "status":
		if err := migrator.Status(ctx); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}

	case "version":
		version, err := migrator.GetCurrentVersion(ctx)
		if err != nil {
			log.Fatalf("Failed to get migration version: %v", err)
		}
		log.Printf("Current migration version: %d", version)

	case "reset":
		if err := migrator.Reset(ctx); err != nil {
			log.Fatalf("Failed to reset migrations: %v", err)
		}
		log.Println("Successfully reset migrations")

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}
