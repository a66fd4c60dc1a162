// Command migrate applies the comment engine schema.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"tourbook/internal/config"
	"tourbook/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}
		log.Println("schema applied")
	case "status":
		for _, table := range database.Tables() {
			log.Printf("%-10s present=%t", table, db.Migrator().HasTable(table))
		}
	default:
		return usage()
	}
	return nil
}
