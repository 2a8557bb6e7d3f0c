package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/lukisch/n8n-workflow-manager/internal/config"
	"github.com/lukisch/n8n-workflow-manager/internal/logging"
	"github.com/lukisch/n8n-workflow-manager/internal/repository"
	"github.com/lukisch/n8n-workflow-manager/internal/services"
)

func main() {
	ctx := context.Background()

	configFile := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.JSON)

	store, err := repository.Open(ctx, repository.Options{Driver: cfg.DB.Driver, Path: cfg.DB.Path, DSN: cfg.DB.DSN})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	templates := services.NewTemplateService(store, logger)
	added, err := templates.SeedBuiltins(ctx)
	if err != nil {
		log.Fatalf("Failed to seed templates: %v", err)
	}
	logger.Info("seeding complete: %d templates added", added)
}
