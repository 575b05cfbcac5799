package main

import (
	"context"                         // Seeding context
	"vending_machine/internal/config" // Custom import path (Config)
	"vending_machine/internal/db"     // Custom import path (Database)
	"vending_machine/internal/ledger" // Record store

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gdb := db.Migrate(cfg.DSN()) // Create or update the schema
	if cfg.SeedData {
		if err := db.Seed(context.Background(), ledger.NewGormStore(gdb)); err != nil {
			logrus.Fatalf("seeding failed: %v", err)
		}
	}
}
