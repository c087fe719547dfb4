package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate version    # print the applied version
//   go run ./cmd/migrate down       # revert the latest migration

import (
	"context"
	"fmt"
	"os"

	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/storage/db"
	"sheetinsight-backend/internal/shared/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown action %q (use up, down or version)", action)
	}

	cfg := config.Load()
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.ProfileMigrate)))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	switch action {
	case "down":
		if err := db.RollbackOne(ctx, sqlDB); err != nil {
			return err
		}
	case "up":
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return err
		}
	}
	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}
