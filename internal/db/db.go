package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the operation journal, with separate read/write pools
type DB struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// New opens (creating if needed) the journal at dbPath
func New(ctx context.Context, dbPath string) (*DB, error) {
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	// sqlite allows a single writer
	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)
	write.SetConnMaxLifetime(time.Hour)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}
	read.SetMaxOpenConns(4)
	read.SetMaxIdleConns(2)
	read.SetConnMaxIdleTime(time.Minute)
	read.SetConnMaxLifetime(time.Hour)

	db := &DB{write: write, read: read, path: dbPath}
	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Close closes both pools
func (db *DB) Close() error {
	writeErr := db.write.Close()
	readErr := db.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,
    package TEXT NOT NULL,
    version TEXT,
    success INTEGER NOT NULL,
    mode TEXT,
    force TEXT,
    strategy TEXT,
    affected TEXT,
    warnings TEXT,
    errors TEXT,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_operations_package ON operations(package);
CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started_at);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    description TEXT
);
	`

	if _, err := db.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Operation is one journaled engine operation
type Operation struct {
	ID        int64         `json:"id" yaml:"id"`
	Operation string        `json:"operation" yaml:"operation"`
	Package   string        `json:"package" yaml:"package"`
	Version   string        `json:"version,omitempty" yaml:"version,omitempty"`
	Success   bool          `json:"success" yaml:"success"`
	Mode      string        `json:"mode,omitempty" yaml:"mode,omitempty"`
	Force     string        `json:"force,omitempty" yaml:"force,omitempty"`
	Strategy  string        `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Affected  []string      `json:"affected,omitempty" yaml:"affected,omitempty"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// ErrNotFound is returned by Get for unknown IDs
var ErrNotFound = errors.New("operation not found")

func marshalList(list []string) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Record inserts op and sets its ID
func (db *DB) Record(ctx context.Context, op *Operation) error {
	cols := make([]string, 3)
	for i, list := range [][]string{op.Affected, op.Warnings, op.Errors} {
		encoded, err := marshalList(list)
		if err != nil {
			return fmt.Errorf("marshal operation lists: %w", err)
		}
		cols[i] = encoded
	}

	if op.StartedAt.IsZero() {
		op.StartedAt = time.Now()
	}

	query := `
INSERT INTO operations (operation, package, version, success, mode, force, strategy, affected, warnings, errors, started_at, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := db.write.ExecContext(ctx, query,
		op.Operation,
		op.Package,
		op.Version,
		op.Success,
		op.Mode,
		op.Force,
		op.Strategy,
		cols[0],
		cols[1],
		cols[2],
		op.StartedAt.UTC().Format(time.RFC3339Nano),
		op.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read operation id: %w", err)
	}
	op.ID = id
	return nil
}

const selectColumns = `SELECT id, operation, package, version, success, mode, force, strategy, affected, warnings, errors, started_at, duration_ms FROM operations`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row scanner) (*Operation, error) {
	var (
		op                                              Operation
		version, mode, force, strategy                  sql.NullString
		affectedJSON, warningsJSON, errorsJSON, started string
		durationMS                                      int64
	)

	err := row.Scan(&op.ID, &op.Operation, &op.Package, &version, &op.Success, &mode, &force, &strategy,
		&affectedJSON, &warningsJSON, &errorsJSON, &started, &durationMS)
	if err != nil {
		return nil, err
	}

	op.Version = version.String
	op.Mode = mode.String
	op.Force = force.String
	op.Strategy = strategy.String
	op.Duration = time.Duration(durationMS) * time.Millisecond

	for _, col := range []struct {
		raw  string
		dest *[]string
	}{
		{affectedJSON, &op.Affected},
		{warningsJSON, &op.Warnings},
		{errorsJSON, &op.Errors},
	} {
		if col.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw), col.dest); err != nil {
			return nil, fmt.Errorf("unmarshal operation lists: %w", err)
		}
	}

	op.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	return &op, nil
}

// Get retrieves one operation by ID
func (db *DB) Get(ctx context.Context, id int64) (*Operation, error) {
	op, err := scanOperation(db.read.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query operation: %w", err)
	}
	return op, nil
}

func (db *DB) query(ctx context.Context, query string, args ...interface{}) ([]Operation, error) {
	rows, err := db.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ops, nil
}

// List returns the most recent operations first. limit <= 0 returns all.
func (db *DB) List(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.query(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
}

// ListByPackage returns the operations requested for name, newest first
func (db *DB) ListByPackage(ctx context.Context, name string, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.query(ctx, selectColumns+` WHERE package = ? ORDER BY id DESC LIMIT ?`, name, limit)
}

// Prune keeps the newest keep operations and deletes the rest
func (db *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.write.ExecContext(ctx,
		`DELETE FROM operations WHERE id NOT IN (SELECT id FROM operations ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune operations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}
