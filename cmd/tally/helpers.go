package main

import (
	"fmt"
	"strconv"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/config"
	"github.com/pocketledger/tally/internal/engine"
	"github.com/pocketledger/tally/internal/storage"
)

// session bundles the open storage and controller for one command run.
type session struct {
	cfg        *config.Config
	store      *storage.SQLiteStorage
	controller *engine.ReconciliationController
}

func (s *session) close() {
	_ = s.store.Close()
}

// openSession loads config, opens the database, and builds the pipeline.
func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("could not open the ledger database at %s", cfg.DatabasePath), err)
	}

	opts := []engine.Option{
		engine.WithDedupeConfig(cfg.DedupeConfig()),
		engine.WithRecurringConfig(cfg.RecurringConfig()),
	}
	if cfg.SuggestionLimit > 0 {
		opts = append(opts, engine.WithSuggestionLimit(cfg.SuggestionLimit))
	}

	controller := engine.New(store, opts...)
	return &session{cfg: cfg, store: store, controller: controller}, nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
