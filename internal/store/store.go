// Package store provides an optional Postgres sink for the discovered
// device graph. The crawl controller writes each device into it as the
// device is discovered, in addition to the final JSON file §6
// mandates — so a mid-crawl crash against a large fleet does not lose
// all progress. A Config with no [Postgres] section means Open is never
// called and the crawl behaves exactly like a memory-only run.
//
// Grounded on the teacher's checkin.DB: a pgxpool.Pool wrapper with one
// upsert statement per write and a context-scoped Ping on construction.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osiriscare/netmapd/internal/model"
)

// Store wraps a pgx connection pool used to persist discovered devices
// as they are found, keyed the same way the in-memory explored-set is.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a new Store from a Postgres connection string, pinging
// the pool so a bad DSN surfaces as a configuration error rather than
// failing silently on the first device write mid-crawl.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool's connections.
func (s *Store) Close() {
	s.pool.Close()
}

// UpsertDevice persists one discovered device, keyed by its canonical
// identity (MAC once known, else its stub name — §3). The full device,
// including its nested interfaces, trunks, and VMs, is stored as JSONB
// so schema evolution in the data model never requires a migration.
func (s *Store) UpsertDevice(ctx context.Context, device *model.Device) error {
	body, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("store: marshal device %q: %w", device.Key(), err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO netmap_devices (device_key, body, discovered_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (device_key) DO UPDATE SET
			body = EXCLUDED.body,
			discovered_at = EXCLUDED.discovered_at
	`, device.Key(), string(body))
	if err != nil {
		return fmt.Errorf("store: upsert device %q: %w", device.Key(), err)
	}
	return nil
}
