package database

import (
	"database/sql"
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun/driver/pgdriver"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// NewPostgres opens the users database and applies pending migrations.
func NewPostgres(dsn string) (*sql.DB, error) {
	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging db: %w", err)
	}

	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
	if _, err := migrate.Exec(db, "postgres", source, migrate.Up); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return db, nil
}
