package store

import (
	"context"
	"log"
	"strings"
)

// Open selects the KV backend: Postgres when a DATABASE_URL is configured,
// SQLite when a file path is configured, otherwise a volatile in-memory store.
func Open(ctx context.Context, databaseURL, sqlitePath string) (KV, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresKV(ctx, databaseURL)
	}
	if strings.TrimSpace(sqlitePath) != "" {
		return NewSQLiteKV(sqlitePath)
	}
	log.Printf("store: no DATABASE_URL or SQLITE_PATH set, using in-memory store (data will not survive restarts)")
	return NewMemoryKV(), nil
}
