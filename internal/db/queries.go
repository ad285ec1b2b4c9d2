package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// Batch is one import: a group of records appended together.
type Batch struct {
	ID          string  `json:"id"`
	Source      *string `json:"source,omitempty"`
	RecordCount int     `json:"record_count"`
	ImportedAt  int64   `json:"imported_at"`
}

// StoredRecord is a raw record with its store position.
type StoredRecord struct {
	Seq     int
	BatchID string
	Raw     repair.RawRecord
}

// InsertBatch appends raws as a single batch. Either every record is stored
// or none is.
func InsertBatch(ctx context.Context, db *sql.DB, b *Batch, raws []repair.RawRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, record_count, imported_at) VALUES (?, ?, ?, ?)`,
		b.ID, toNullString(b.Source), len(raws), b.ImportedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (
			batch_id, brand, tool_type, model, problem, component,
			components_json, successful, failure_reason, video_url, video_title
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i := range raws {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("import")
		}
		r := &raws[i]

		var componentsJSON sql.NullString
		if r.Components != nil {
			data, err := json.Marshal([]string(r.Components))
			if err != nil {
				return errors.NewInternal(err)
			}
			componentsJSON = sql.NullString{String: string(data), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			b.ID, toNullString(r.Brand), toNullString(r.ToolType), toNullString(r.Model),
			r.Problem, toNullString(r.Component), componentsJSON,
			toNullBool(r.Successful), toNullString(r.FailureReason), r.VideoURL, r.VideoTitle,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	b.RecordCount = len(raws)
	return nil
}

// ListStored returns every stored record in store order. When batchID is
// non-empty only that batch is returned.
func ListStored(ctx context.Context, db *sql.DB, batchID string) ([]StoredRecord, error) {
	query := `
		SELECT seq, batch_id, brand, tool_type, model, problem, component,
			components_json, successful, failure_reason, video_url, video_title
		FROM records
	`
	var args []any
	if batchID != "" {
		query += " WHERE batch_id = ?"
		args = append(args, batchID)
	}
	query += " ORDER BY seq"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []StoredRecord{}
	for rows.Next() {
		sr, err := scanStored(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// ListRecords returns every stored record canonicalized, with Seq taken from
// the store.
func ListRecords(ctx context.Context, db *sql.DB) ([]repair.Record, error) {
	stored, err := ListStored(ctx, db, "")
	if err != nil {
		return nil, err
	}
	out := make([]repair.Record, len(stored))
	for i, sr := range stored {
		out[i] = repair.Canonicalize(sr.Raw, sr.Seq)
	}
	return out, nil
}

// CountRecords returns the number of stored records.
func CountRecords(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ListBatches returns batches newest first.
func ListBatches(ctx context.Context, db *sql.DB) ([]Batch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source, record_count, imported_at
		FROM batches
		ORDER BY imported_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []Batch{}
	for rows.Next() {
		var (
			b      Batch
			source sql.NullString
		)
		if err := rows.Scan(&b.ID, &source, &b.RecordCount, &b.ImportedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		b.Source = fromNullString(source)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// GetBatch retrieves a batch by its ULID.
func GetBatch(ctx context.Context, db *sql.DB, id string) (*Batch, error) {
	var (
		b      Batch
		source sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, source, record_count, imported_at FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &source, &b.RecordCount, &b.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	b.Source = fromNullString(source)
	return &b, nil
}

func scanStored(rows *sql.Rows) (StoredRecord, error) {
	var (
		sr             StoredRecord
		brand          sql.NullString
		toolType       sql.NullString
		model          sql.NullString
		component      sql.NullString
		componentsJSON sql.NullString
		successful     sql.NullBool
		failureReason  sql.NullString
	)

	err := rows.Scan(
		&sr.Seq, &sr.BatchID, &brand, &toolType, &model, &sr.Raw.Problem, &component,
		&componentsJSON, &successful, &failureReason, &sr.Raw.VideoURL, &sr.Raw.VideoTitle,
	)
	if err != nil {
		return sr, err
	}

	sr.Raw.Brand = fromNullString(brand)
	sr.Raw.ToolType = fromNullString(toolType)
	sr.Raw.Model = fromNullString(model)
	sr.Raw.Component = fromNullString(component)
	sr.Raw.FailureReason = fromNullString(failureReason)
	if successful.Valid {
		sr.Raw.Successful = &successful.Bool
	}

	if componentsJSON.Valid && componentsJSON.String != "" {
		var list []string
		if err := json.Unmarshal([]byte(componentsJSON.String), &list); err != nil {
			return sr, err
		}
		sr.Raw.Components = list
	}

	return sr, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
