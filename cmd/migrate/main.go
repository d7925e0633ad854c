// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"pariposhan/internal/config"
	"pariposhan/internal/database"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
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

	db, err := gorm.Open(database.Dialector(cfg), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("automigrations failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		m := db.Migrator()
		pending := 0
		for _, model := range database.PersistentModels() {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("parse %T: %w", model, err)
			}
			if m.HasTable(model) {
				log.Printf("present: %s", stmt.Schema.Table)
				continue
			}
			pending++
			log.Printf("missing: %s", stmt.Schema.Table)
		}
		log.Printf("driver=%s env=%s tables=%d missing=%d", db.Dialector.Name(), cfg.Env, len(database.PersistentModels()), pending)
	default:
		return usage()
	}

	return nil
}
