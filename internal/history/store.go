// Package history records generated texts in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jxucoder/meepoo/pkg/llm"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("generation not found")

// Generation is one completed request and its result.
type Generation struct {
	ID        string    `json:"id"`
	Kind      llm.Kind  `json:"kind"`
	Model     string    `json:"model"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages generation persistence in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL lets `meepoo serve` and the CLI share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS generations (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			model      TEXT NOT NULL DEFAULT '',
			input      TEXT NOT NULL,
			output     TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_generations_created_at
			ON generations(created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts g, filling in ID and CreatedAt when they are unset.
func (s *Store) Record(ctx context.Context, g *Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, kind, model, input, output, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Kind, g.Model, g.Input, g.Output, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

// Get retrieves a generation by ID.
func (s *Store) Get(ctx context.Context, id string) (*Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, model, input, output, created_at
		 FROM generations WHERE id = ?`, id,
	)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// List returns up to limit generations, newest first. A limit below 1
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Generation, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, model, input, output, created_at
		 FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []*Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanGeneration(row scannable) (*Generation, error) {
	g := &Generation{}
	if err := row.Scan(&g.ID, &g.Kind, &g.Model, &g.Input, &g.Output, &g.CreatedAt); err != nil {
		return nil, err
	}
	return g, nil
}
