package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/garden-ledger/internal/config"
	infraBQ "github.com/dvloznov/garden-ledger/internal/infra/bigquery"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

func main() {
	cfg := config.Load()

	var (
		projectID = flag.String("project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT)")
		datasetID = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID (or set BIGQUERY_DATASET)")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		list      = flag.Bool("list", false, "List embedded migrations and exit")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if *list {
		migrations, err := infraBQ.EmbeddedMigrations(infraBQ.Dataset{ProjectID: *projectID, DatasetID: *datasetID})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		for _, m := range migrations {
			fmt.Printf("%04d  %-30s  %s\n", m.Version, m.Name, m.Checksum[:12])
		}
		return
	}

	if *projectID == "" {
		log.Error().Msg("Error: -project flag is required. Please specify your GCP project ID.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewExpenseRepository(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	applied, err := repo.Migrate(ctx, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if applied == 0 {
		fmt.Println("No new migrations to apply. Dataset is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s)\n", applied)
	}
}
