package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"movebooking/pkg/config"
	"movebooking/pkg/db"
)

func main() {
	steps := flag.Int("steps", 0, "versions to move; 0 applies all pending, negative rolls back")
	flag.Parse()

	cfg := config.Load()

	// Uses DIRECT_URL when set; poolers reject some DDL sessions.
	state, err := db.Migrate(cfg.MigrationsPath, cfg, *steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed (schema %s): %v\n", state, err)
		os.Exit(1)
	}

	// The runtime connection (DATABASE_URL) must open too. DSNs are not printed.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Printf("schema at %s\n", state)
}
