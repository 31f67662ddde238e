package storage

import (
	"errors"
	"fmt"
	"strings"

	"ResearchBriefing/internal/ports"
)

// ErrNotFound is returned by a backend that holds no document yet.
var ErrNotFound = errors.New("storage: state document not found")

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	defaultTable = "research_state"
	defaultName  = "default"
)

// Options selects and configures a state backend.
type Options struct {
	Backend string
	// Path is the JSON file (file backend) or database file (sqlite backend).
	Path string
	// DSN is the Postgres connection string.
	DSN   string
	Table string
	// Name keys the row holding the document, so several deployments can share a table.
	Name string
}

// Open builds the backend described by opts.
func Open(opts Options) (ports.StateBackend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, errors.New("file backend requires a path")
		}
		return NewFileBackend(opts.Path), nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, errors.New("sqlite backend requires a path")
		}
		return OpenSQLite(opts.Path, opts.Table, opts.Name)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, errors.New("postgres backend requires a dsn")
		}
		return OpenPostgres(opts.DSN, opts.Table, opts.Name)
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}
