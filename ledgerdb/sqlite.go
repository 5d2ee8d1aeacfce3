// Package ledgerdb is a SQLite backend for the host ledger.
package ledgerdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	_ "modernc.org/sqlite"
)

// Store persists ledger entries and events in SQLite.
type Store struct {
	db *sql.DB
}

var _ host.Backend = (*Store)(nil)

// NewStore opens or creates a SQLite database and runs migrations.
// Pass ":memory:" for a throwaway database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The ledger serializes calls; one connection also keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			durability INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_expiry ON entries(durability, expires_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contract TEXT NOT NULL,
			topics TEXT NOT NULL,
			data BLOB NOT NULL,
			tick INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_contract ON events(contract)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*host.Entry, error) {
	entry := &host.Entry{}
	err := s.db.QueryRowContext(ctx,
		`SELECT value, durability, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&entry.Value, &entry.Durability, &entry.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Commit applies writes and appends events in a single SQL transaction.
func (s *Store) Commit(ctx context.Context, writes []host.Write, events []interfaces.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if w.Deleted {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, w.Key); err != nil {
				return fmt.Errorf("delete entry: %w", err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entries (key, value, durability, expires_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, durability = excluded.durability, expires_at = excluded.expires_at`,
			w.Key, w.Entry.Value, w.Entry.Durability, w.Entry.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}
	}

	for i := range events {
		topics, err := json.Marshal(events[i].Topics)
		if err != nil {
			return fmt.Errorf("encode topics: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (contract, topics, data, tick) VALUES (?, ?, ?, ?)`,
			events[i].Contract.Hex(), string(topics), []byte(events[i].Data), events[i].Tick,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		events[i].ID = uint64(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, filter interfaces.EventFilter) ([]interfaces.Event, error) {
	query := `SELECT id, contract, topics, data, tick FROM events WHERE id >= ?`
	args := []any{filter.FromID}
	if filter.Contract != nil {
		query += ` AND contract = ?`
		args = append(args, filter.Contract.Hex())
	}
	if filter.Topic != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(events.topics) WHERE json_each.value = ?)`
		args = append(args, filter.Topic)
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []interfaces.Event
	for rows.Next() {
		var (
			ev       interfaces.Event
			contract string
			topics   string
			data     []byte
		)
		if err := rows.Scan(&ev.ID, &contract, &topics, &data, &ev.Tick); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Contract, err = interfaces.NewPrincipalFromHex(contract)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &ev.Topics); err != nil {
			return nil, fmt.Errorf("decode topics: %w", err)
		}
		ev.Data = data
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Prune deletes temporary entries that expired at or before now.
func (s *Store) Prune(ctx context.Context, now uint64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE durability = ? AND expires_at <= ?`, host.Temporary, now,
	)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
