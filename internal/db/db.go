// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KindDilution = "dilution"
	KindPurchase = "purchase"
)

// QuoteRecord is one calculated quote, whether or not it was acted on.
type QuoteRecord struct {
	ID                       int64
	Timestamp                time.Time
	Kind                     string
	BatchID                  string
	CurrentDepth             uint8
	NewDepth                 uint8
	Mode                     string
	TopUpAmount              string
	TopUpPerChunk            string
	ResultingLifetimeSeconds int64
	PriceUnavailable         bool
	Committed                bool
	TxHash                   string
}

type SearchParams struct {
	BatchID       string
	Kind          string
	Mode          string
	CommittedOnly bool
	Limit         int
}

type Store struct {
	db *sql.DB
}

// DefaultPath is ~/.swarmctl/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".swarmctl", "history.db"), nil
}

// InitDB opens the history database at path, creating it and its directory
// if needed. An empty path means DefaultPath.
func InitDB(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TIMESTAMP NOT NULL,
		kind TEXT NOT NULL,
		batch_id TEXT NOT NULL DEFAULT '',
		current_depth INTEGER NOT NULL,
		new_depth INTEGER NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		top_up_amount TEXT NOT NULL,
		top_up_per_chunk TEXT NOT NULL,
		resulting_lifetime INTEGER NOT NULL,
		price_unavailable INTEGER NOT NULL,
		committed INTEGER NOT NULL DEFAULT 0,
		tx_hash TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("create quotes table: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS quotes_batch ON quotes(batch_id)`); err != nil {
		return fmt.Errorf("create quotes index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveQuote inserts rec and returns its ID. A zero Timestamp is set to now.
func (s *Store) SaveQuote(ctx context.Context, rec QuoteRecord) (int64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO quotes
		(created_at, kind, batch_id, current_depth, new_depth, mode, top_up_amount,
		 top_up_per_chunk, resulting_lifetime, price_unavailable, committed, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.Kind, rec.BatchID, rec.CurrentDepth, rec.NewDepth, rec.Mode,
		rec.TopUpAmount, rec.TopUpPerChunk, rec.ResultingLifetimeSeconds,
		rec.PriceUnavailable, rec.Committed, rec.TxHash)
	if err != nil {
		return 0, fmt.Errorf("save quote: %w", err)
	}
	return res.LastInsertId()
}

// MarkCommitted records that quote id was sent to the node as txHash.
func (s *Store) MarkCommitted(ctx context.Context, id int64, txHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quotes SET committed = 1, tx_hash = ? WHERE id = ?`, txHash, id)
	if err != nil {
		return fmt.Errorf("mark quote %d committed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mark quote %d committed: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SearchQuotes returns matching quotes, newest first.
func (s *Store) SearchQuotes(ctx context.Context, params SearchParams) ([]QuoteRecord, error) {
	var (
		where []string
		args  []any
	)
	if params.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, params.BatchID)
	}
	if params.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, params.Kind)
	}
	if params.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, params.Mode)
	}
	if params.CommittedOnly {
		where = append(where, "committed = 1")
	}

	query := `SELECT id, created_at, kind, batch_id, current_depth, new_depth, mode, top_up_amount,
		top_up_per_chunk, resulting_lifetime, price_unavailable, committed, tx_hash FROM quotes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if params.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, params.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search quotes: %w", err)
	}
	defer rows.Close()

	var out []QuoteRecord
	for rows.Next() {
		var r QuoteRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Kind, &r.BatchID, &r.CurrentDepth, &r.NewDepth,
			&r.Mode, &r.TopUpAmount, &r.TopUpPerChunk, &r.ResultingLifetimeSeconds,
			&r.PriceUnavailable, &r.Committed, &r.TxHash); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
