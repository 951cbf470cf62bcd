package main

import (
	"context"
	"flag"
	"log"

	"github.com/finopslabs/apinbox/internal/config"
	"github.com/finopslabs/apinbox/internal/db"
	"github.com/finopslabs/apinbox/internal/pipeline"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

func main() {
	resetDetection := flag.String("reset-detection", "",
		"operator action: document hash to mark UNSCANNED so the next cycle re-runs detection")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DBPath, cfg.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	store := repository.NewStore(database)
	ctx := context.Background()

	if *resetDetection != "" {
		err := store.WithTx(ctx, func(tx *repository.Tx) error {
			return tx.ResetDetection(ctx, *resetDetection)
		})
		if err != nil {
			logger.Fatal("Failed to reset detection state", "error", err)
		}
		logger.Info("detection state reset", "document_hash", *resetDetection)
		return
	}

	p, err := pipeline.New(cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to build pipeline", "error", err)
	}

	summary, err := p.RunCycle(ctx)
	if err != nil {
		logger.Fatal("Pipeline cycle failed", "error", err)
	}

	logger.Info("pipeline cycle complete",
		"started_at", summary.StartedAt,
		"ended_at", summary.EndedAt,
		"documents_seen", summary.Scan.DocumentsSeen,
		"worklist_items", summary.Worklist.Items,
		"worklist_run_id", summary.Worklist.RunID)
}
