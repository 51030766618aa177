package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // production driver
	_ "github.com/mattn/go-sqlite3" // local development and tests
	"vendara-integration/internal/platform/config"
)

// New opens the service database. Postgres in production; sqlite3 for local
// development. All repository SQL uses $n placeholders and ON CONFLICT, which
// both drivers accept.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
