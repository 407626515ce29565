// Package commands implements the qafax CLI subcommands.
package commands

import (
	"database/sql"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/db"
	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/logger"
)

// openDatabase opens the run history database from app config, applying
// migrations. Callers own the handle.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", cfg.Database.Path)
	}
	return database, nil
}

// loadConfigAndStore is the common setup for commands that persist runs.
func loadConfigAndStore() (*config.Config, *sql.DB, *db.RunStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "load configuration")
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, database, db.NewRunStore(database), nil
}
