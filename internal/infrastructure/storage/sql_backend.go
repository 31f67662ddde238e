package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ResearchBriefing/internal/ports"
)

// SQLBackend persists the state document as one row of a key/document table.
// The same statements run on SQLite and Postgres; only the placeholder format differs.
type SQLBackend struct {
	db          *sql.DB
	table       string
	name        string
	placeholder sq.PlaceholderFormat
	now         func() time.Time
}

var _ ports.StateBackend = (*SQLBackend)(nil)

// OpenSQLite opens (or creates) a SQLite database file. Use ":memory:" in tests.
func OpenSQLite(path, table, name string) (*SQLBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	return newSQLBackend(db, table, name, sq.Question)
}

// OpenPostgres connects through lib/pq.
func OpenPostgres(dsn, table, name string) (*SQLBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLBackend(db, table, name, sq.Dollar)
}

func newSQLBackend(db *sql.DB, table, name string, placeholder sq.PlaceholderFormat) (*SQLBackend, error) {
	if table == "" {
		table = defaultTable
	}
	if name == "" {
		name = defaultName
	}
	b := &SQLBackend{
		db:          db,
		table:       pq.QuoteIdentifier(table),
		name:        name,
		placeholder: placeholder,
		now:         time.Now,
	}
	if err := b.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLBackend) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name       TEXT PRIMARY KEY,
    document   TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`, b.table)
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Read loads the document row or returns ErrNotFound.
func (b *SQLBackend) Read(ctx context.Context) ([]byte, error) {
	var document string
	err := sq.Select("document").
		From(b.table).
		Where(sq.Eq{"name": b.name}).
		PlaceholderFormat(b.placeholder).
		RunWith(b.db).
		QueryRowContext(ctx).
		Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return []byte(document), nil
}

// Write upserts the document row.
func (b *SQLBackend) Write(ctx context.Context, document []byte) error {
	_, err := sq.Insert(b.table).
		Columns("name", "document", "updated_at").
		Values(b.name, string(document), b.now().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(b.placeholder).
		RunWith(b.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Names lists every document key stored in the table.
func (b *SQLBackend) Names(ctx context.Context) ([]string, error) {
	rows, err := sq.Select("name").
		From(b.table).
		OrderBy("name").
		PlaceholderFormat(b.placeholder).
		RunWith(b.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return names, nil
}

// Close releases the connection pool.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
