// Package store provides a SQLite-backed history of processing passes.
// Nothing reads it back to price rows; it is a record for reporting.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// FileName is the history database name inside the config directory.
const FileName = "history.db"

// History records processing passes.
type History struct {
	db *sql.DB
}

// PassRecord is one stored pass.
type PassRecord struct {
	ID             string        `json:"id"`
	Source         string        `json:"source"`
	RanAt          time.Time     `json:"ranAt"`
	Duration       time.Duration `json:"durationMs"`
	RowCount       int           `json:"rowCount"`
	TotalRecords   int64         `json:"totalRecords"`
	TotalStorageGB float64       `json:"totalStorageGB"`
	TotalCost      float64       `json:"totalCost"`
	Currency       string        `json:"currency"`
}

// RowRecord is one customer line of a stored pass.
type RowRecord struct {
	Name      string  `json:"name"`
	Records   int64   `json:"records"`
	StorageGB float64 `json:"storageGB"`
	Cost      float64 `json:"cost"`
	CostText  string  `json:"costText"`
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, eris.Wrap(err, "store: create dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, eris.Wrap(err, "store: open db")
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "store: create schema")
	}

	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores a pass and its rows and returns the new pass ID.
func (h *History) Record(ctx context.Context, source, currency string, ranAt time.Time, took time.Duration, res model.AggregateResult) (string, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `INSERT INTO passes
		(pass_id, source, ran_at, duration_ms, row_count, total_records, total_storage_gb, total_cost, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source, ranAt.UTC().Format(time.RFC3339Nano), took.Milliseconds(), len(res.Rows),
		res.TotalRecords, res.TotalStorageGB, res.TotalCost, currency,
	)
	if err != nil {
		return "", eris.Wrap(err, "store: insert pass")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pass_rows
		(pass_id, position, name, records, storage_gb, cost, cost_text)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", eris.Wrap(err, "store: prepare rows")
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range res.Rows {
		if _, err := stmt.ExecContext(ctx, id, i, r.Name, r.Records, r.StorageGB, r.Cost, r.CostText); err != nil {
			return "", eris.Wrapf(err, "store: insert row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "store: commit")
	}
	return id, nil
}

// Recent returns up to limit passes, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]PassRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `SELECT
		pass_id, source, ran_at, duration_ms, row_count, total_records, total_storage_gb, total_cost, currency
		FROM passes ORDER BY ran_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: query passes")
	}
	defer func() { _ = rows.Close() }()

	var out []PassRecord
	for rows.Next() {
		var p PassRecord
		var ranAt string
		var ms int64
		if err := rows.Scan(&p.ID, &p.Source, &ranAt, &ms, &p.RowCount,
			&p.TotalRecords, &p.TotalStorageGB, &p.TotalCost, &p.Currency); err != nil {
			return nil, eris.Wrap(err, "store: scan pass")
		}
		p.RanAt, _ = time.Parse(time.RFC3339Nano, ranAt)
		p.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate passes")
}

// Rows returns the stored rows of a pass in their original order.
func (h *History) Rows(ctx context.Context, passID string) ([]RowRecord, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT name, records, storage_gb, cost, cost_text
		FROM pass_rows WHERE pass_id = ? ORDER BY position`, passID)
	if err != nil {
		return nil, eris.Wrap(err, "store: query rows")
	}
	defer func() { _ = rows.Close() }()

	var out []RowRecord
	for rows.Next() {
		var r RowRecord
		if err := rows.Scan(&r.Name, &r.Records, &r.StorageGB, &r.Cost, &r.CostText); err != nil {
			return nil, eris.Wrap(err, "store: scan row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate rows")
}

// Prune deletes all but the newest keep passes and reports how many were
// removed.
func (h *History) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM passes WHERE pass_id NOT IN
		(SELECT pass_id FROM passes ORDER BY ran_at DESC, rowid DESC LIMIT ?)`, max(keep, 0))
	if err != nil {
		return 0, eris.Wrap(err, "store: prune")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of stored passes.
func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passes").Scan(&n)
	return n, eris.Wrap(err, "store: count")
}
