// Package journal keeps a local SQLite record of every checkout.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"softpos/internal/checkout"
	"softpos/internal/errors"
	"softpos/internal/logging"
)

// ErrNotFound is returned when no entry matches a reference
var ErrNotFound = errors.New(errors.ErrorTypeValidation, "journal entry not found")

// Entry is one recorded checkout
type Entry struct {
	ReferenceID     string         `json:"reference_id"`
	Status          string         `json:"status"`
	Amount          string         `json:"amount,omitempty"`
	Currency        string         `json:"currency,omitempty"`
	TransactionID   string         `json:"transaction_id,omitempty"`
	ResponseCode    string         `json:"response_code,omitempty"`
	ResponseMessage string         `json:"response_message,omitempty"`
	Message         string         `json:"message"`
	ErrorKind       string         `json:"error_kind,omitempty"`
	DeviceID        string         `json:"device_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	DurationMS      int64          `json:"duration_ms"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Journal records checkout outcomes in SQLite
type Journal struct {
	db        *sql.DB
	path      string
	retention time.Duration
	logger    *logging.Logger
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
// Entries older than retention are removed on open; zero keeps everything.
func Open(path string, retention time.Duration, logger *logging.Logger) (*Journal, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger("journal")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to create journal directory").
				WithContext("path", path)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to open journal").
			WithContext("path", path)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path, retention: retention, logger: logger}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "failed to initialize journal schema")
	}

	if removed, err := j.Cleanup(context.Background()); err != nil {
		logger.Warn("Journal cleanup failed: %v", err)
	} else if removed > 0 {
		logger.Debug("removed %d expired journal entries", removed)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkouts (
			reference_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			amount TEXT,
			currency TEXT,
			transaction_id TEXT,
			response_code TEXT,
			response_message TEXT,
			message TEXT NOT NULL,
			error_kind TEXT,
			device_id TEXT,
			metadata TEXT,                        -- JSON metadata
			duration_ms INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL           -- unix milliseconds
		);

		CREATE INDEX IF NOT EXISTS idx_checkouts_created_at ON checkouts(created_at);
		CREATE INDEX IF NOT EXISTS idx_checkouts_transaction_id ON checkouts(transaction_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Publish records the outcome
func (j *Journal) Publish(ctx context.Context, outcome checkout.Outcome) error {
	_, err := j.Record(ctx, outcome)
	return err
}

// Record stores the outcome and returns the entry written
func (j *Journal) Record(ctx context.Context, outcome checkout.Outcome) (Entry, error) {
	entry := entryFor(outcome, time.Now())

	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return Entry{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal checkout metadata")
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO checkouts (
			reference_id, status, amount, currency, transaction_id, response_code,
			response_message, message, error_kind, device_id, metadata, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		entry.ReferenceID, entry.Status, entry.Amount, entry.Currency, entry.TransactionID, entry.ResponseCode,
		entry.ResponseMessage, entry.Message, entry.ErrorKind, entry.DeviceID, metadata, entry.DurationMS,
		entry.CreatedAt.UnixMilli())
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to record checkout").
			WithContext("reference_id", entry.ReferenceID)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, selectEntries+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to list checkouts")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			j.logger.Debug("skipping malformed journal row: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get looks an entry up by reference ID or transaction ID
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectEntries+` WHERE reference_id = ? OR transaction_id = ? LIMIT 1`, id, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to read checkout").
			WithContext("id", id)
	}
	return entry, nil
}

// Cleanup removes entries older than the retention period
func (j *Journal) Cleanup(ctx context.Context) (int64, error) {
	if j.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-j.retention).UnixMilli()
	result, err := j.db.ExecContext(ctx, `DELETE FROM checkouts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "failed to clean up journal")
	}
	return result.RowsAffected()
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

const selectEntries = `
	SELECT reference_id, status, amount, currency, transaction_id, response_code,
		response_message, message, error_kind, device_id, metadata, duration_ms, created_at
	FROM checkouts`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry    Entry
		metadata sql.NullString
		created  int64
		nullable [8]sql.NullString
	)
	err := row.Scan(&entry.ReferenceID, &entry.Status, &nullable[0], &nullable[1], &nullable[2], &nullable[3],
		&nullable[4], &entry.Message, &nullable[5], &nullable[6], &metadata, &entry.DurationMS, &created)
	if err != nil {
		return Entry{}, err
	}
	entry.Amount = nullable[0].String
	entry.Currency = nullable[1].String
	entry.TransactionID = nullable[2].String
	entry.ResponseCode = nullable[3].String
	entry.ResponseMessage = nullable[4].String
	entry.ErrorKind = nullable[5].String
	entry.DeviceID = nullable[6].String
	entry.CreatedAt = time.UnixMilli(created)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
			return Entry{}, err
		}
	}
	return entry, nil
}

func entryFor(outcome checkout.Outcome, now time.Time) Entry {
	entry := Entry{
		Status:     string(outcome.Status),
		Message:    outcome.Message,
		DurationMS: outcome.Duration.Milliseconds(),
		CreatedAt:  now,
	}
	if outcome.Request != nil {
		entry.ReferenceID = outcome.Request.ReferenceID
		entry.Amount = outcome.Request.Amount.StringFixed(2)
		entry.Currency = outcome.Request.CurrencyCode
		entry.Metadata = outcome.Request.Metadata
	}
	if entry.ReferenceID == "" {
		entry.ReferenceID = uuid.NewString()
	}
	if outcome.Result != nil {
		entry.TransactionID = outcome.Result.TransactionID
		entry.ResponseCode = outcome.Result.ResponseCode
		entry.ResponseMessage = outcome.Result.ResponseMessage
	}
	if outcome.Err != nil {
		entry.ErrorKind = string(errors.TypeOf(outcome.Err))
	}
	if outcome.Device != nil {
		entry.DeviceID = outcome.Device.ID
	}
	return entry
}
