package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/db"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path   string  // required, JSON array of records
	Source *string // optional label stored on the batch, default: file name
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	BatchID    string `json:"batch_id"`
	Imported   int    `json:"imported"`
	Total      int    `json:"total"`
	ImportedAt int64  `json:"imported_at"`
}

// Import appends every record in a JSON array file to the store as one batch.
// The file is validated as a whole first; nothing is stored if any record is
// malformed or the file exceeds max_import_records.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	maxRecords := 0
	if cfg != nil {
		maxRecords = cfg.MaxImportRecords
	}
	raws, err := readRecordsFile(ctx, input.Path, maxRecords)
	if err != nil {
		return nil, err
	}

	return importRecords(ctx, database, raws, input.Source, filepath.Base(input.Path))
}

// ImportRecords appends already-decoded records as one batch.
func ImportRecords(ctx context.Context, database *sql.DB, cfg *config.Config, raws []repair.RawRecord, source *string) (*ImportOutput, error) {
	if cfg != nil && cfg.MaxImportRecords > 0 && len(raws) > cfg.MaxImportRecords {
		return nil, errors.NewTooManyRecords(cfg.MaxImportRecords, len(raws))
	}
	return importRecords(ctx, database, raws, source, "")
}

func importRecords(ctx context.Context, database *sql.DB, raws []repair.RawRecord, source *string, defaultSource string) (*ImportOutput, error) {
	if len(raws) == 0 {
		return nil, errors.NewInvalidRequest("no records to import")
	}
	if source == nil && defaultSource != "" {
		source = &defaultSource
	}

	now := time.Now()
	batch := &db.Batch{
		ID:         generateNewULID(now),
		Source:     source,
		ImportedAt: now.Unix(),
	}
	if err := db.InsertBatch(ctx, database, batch, raws); err != nil {
		return nil, err
	}

	total, err := db.CountRecords(ctx, database)
	if err != nil {
		return nil, err
	}

	return &ImportOutput{
		BatchID:    batch.ID,
		Imported:   batch.RecordCount,
		Total:      total,
		ImportedAt: batch.ImportedAt,
	}, nil
}

// generateNewULID generates a new ULID.
func generateNewULID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
