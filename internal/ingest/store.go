// Package ingest persists structured literature records to SQLite. The store
// is the default Ingestor wired into pipeline runs; callers that persist
// elsewhere supply their own implementation.
package ingest

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"litpipe/internal/config"
	"litpipe/internal/literature"
	"litpipe/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases must be deleted after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store persists structured records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ingest database at the configured path.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Paths.IngestDBPath
	if strings.TrimSpace(dbPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "ingest", "ingest database path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return tx.Commit()
}

// Ingest stores one structured record and returns its row identifier.
func (s *Store) Ingest(ctx context.Context, record *literature.StructuredRecord) (string, error) {
	ctx = ensureContext(ctx)
	if record == nil {
		return "", services.Wrap(services.ErrConfiguration, "database_ingestion", "ingest", "record is required", nil)
	}
	if strings.TrimSpace(record.ItemID) == "" {
		return "", services.Wrap(services.ErrConfiguration, "database_ingestion", "ingest", "record item id is required", nil)
	}

	findings, err := json.Marshal(record.KeyFindings)
	if err != nil {
		return "", fmt.Errorf("marshal key findings: %w", err)
	}
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}

	res, err := s.execWithRetry(ctx, `
        INSERT INTO records (item_id, title, summary, methodology, key_findings, fields, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ItemID, record.Title, record.Summary, record.Methodology,
		string(findings), string(fields), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", services.Wrap(services.ErrConfiguration, "database_ingestion", "ingest",
				fmt.Sprintf("record %q already ingested", record.ItemID), err)
		}
		return "", services.Wrap(services.ErrTransient, "database_ingestion", "ingest", "insert record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Count returns the number of persisted records.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records").Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Lookup retrieves one record by the item identifier it was ingested under.
func (s *Store) Lookup(ctx context.Context, itemID string) (*literature.StructuredRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
        SELECT item_id, title, summary, methodology, key_findings, fields
        FROM records WHERE item_id = ?`, itemID)

	var (
		record   literature.StructuredRecord
		findings string
		fields   string
	)
	err := row.Scan(&record.ItemID, &record.Title, &record.Summary, &record.Methodology, &findings, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "database_ingestion", "lookup",
			fmt.Sprintf("record %q not found", itemID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal([]byte(findings), &record.KeyFindings); err != nil {
		return nil, fmt.Errorf("decode key findings: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &record.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return &record, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
