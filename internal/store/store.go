// Package store persists completed layup optimizations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

// Record is a persisted optimization result.
type Record struct {
	ID        string
	Sequence  []float64
	Objective float64
	PlyCount  int
	CreatedAt time.Time
}

// Store wraps the SQLite database holding optimization results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given DSN and prepares the
// schema. The pure-Go sqlite driver needs no cgo.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS layups (
	id         TEXT PRIMARY KEY,
	sequence   TEXT NOT NULL,
	objective  REAL NOT NULL,
	ply_count  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save inserts a completed optimization result.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	seq, err := json.Marshal(rec.Sequence)
	if err != nil {
		return err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO layups (id, sequence, objective, ply_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(seq), rec.Objective, rec.PlyCount, createdAt)
	return err
}

// Get returns a single result by ID, or sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sequence, objective, ply_count, created_at FROM layups WHERE id = ?`, id)
	return scanRecord(row)
}

// List returns up to limit results, most recent first.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence, objective, ply_count, created_at FROM layups ORDER BY created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var seq string
	if err := row.Scan(&rec.ID, &seq, &rec.Objective, &rec.PlyCount, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seq), &rec.Sequence); err != nil {
		return nil, err
	}
	return &rec, nil
}
