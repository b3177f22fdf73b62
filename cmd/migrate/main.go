// Command migrate applies the embedded schema migrations to DATABASE_URL.
//
//	migrate           apply pending migrations
//	migrate --list    list the tables of the public schema
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	listOnly := flag.Bool("list", false, "list tables instead of migrating")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if *listOnly {
		tables, err := postgres.Tables(ctx, db)
		if err != nil {
			log.Fatal(err)
		}
		for _, t := range tables {
			fmt.Println(" ", t)
		}
		fmt.Printf("Total: %d tables\n", len(tables))
		return
	}

	applied, err := postgres.Migrate(ctx, db)
	for _, v := range applied {
		fmt.Printf("  applied %s\n", v)
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		fmt.Println("Schema is up to date")
		return
	}
	fmt.Printf("Applied %d migration(s)\n", len(applied))
}
