package repositories

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// A pooled :memory: connection is a database of its own; keep everything
	// on one connection so all goroutines see the same schema and rows.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE inbound_events (
		id TEXT PRIMARY KEY,
		provider_message_id TEXT NOT NULL UNIQUE,
		direction TEXT NOT NULL DEFAULT 'inbound',
		sender TEXT NOT NULL DEFAULT '',
		message_type TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL DEFAULT '',
		payload_digest TEXT NOT NULL DEFAULT '',
		processing_status TEXT NOT NULL DEFAULT 'received',
		error_message TEXT,
		received_at BIGINT NOT NULL,
		processed_at BIGINT
	);
	CREATE TABLE outbound_messages (
		id TEXT PRIMARY KEY,
		provider_message_id TEXT UNIQUE,
		recipient TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		body TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT,
		requested_by TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		sent_at BIGINT,
		status_updated_at BIGINT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

var ctx = context.Background()
