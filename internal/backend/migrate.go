package backend

import (
	"fmt"

	"bilancio/internal/postgres"
	"bilancio/internal/storage"
)

// MigrateUp applies all pending schema migrations for the configured database.
func MigrateUp(config Config) error {
	switch config.Type {
	case SQLiteBackend:
		return storage.RunMigrations(config.SQLiteDBPath)
	case PostgresBackend:
		return postgres.RunMigrations(config.DatabaseURL)
	}
	return errNoSchema(config.Type)
}

// MigrateDown reverts the last steps migrations.
func MigrateDown(config Config, steps int) error {
	switch config.Type {
	case SQLiteBackend:
		return storage.RollbackMigrations(config.SQLiteDBPath, steps)
	case PostgresBackend:
		return postgres.RollbackMigrations(config.DatabaseURL, steps)
	}
	return errNoSchema(config.Type)
}

// MigrationVersion reports the applied schema version; 0 when none.
func MigrationVersion(config Config) (uint, bool, error) {
	switch config.Type {
	case SQLiteBackend:
		return storage.MigrationVersion(config.SQLiteDBPath)
	case PostgresBackend:
		return postgres.MigrationVersion(config.DatabaseURL)
	}
	return 0, false, errNoSchema(config.Type)
}

func errNoSchema(t BackendType) error {
	return fmt.Errorf("backend %q has no schema to migrate", t)
}
