package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/db"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path    string // optional, default: ~/.wrench/exports/<all|batch-id>-<timestamp>.json
	BatchID string // optional, export a single batch
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes stored records, in store order and in their raw form, as a
// JSON array that Import accepts.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	if input.BatchID != "" {
		if _, err := db.GetBatch(ctx, database, input.BatchID); err != nil {
			return nil, err
		}
	}

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.BatchID, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate ALL paths (both user-provided and default)
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	stored, err := db.ListStored(ctx, database, input.BatchID)
	if err != nil {
		return nil, err
	}
	raws := make([]repair.RawRecord, len(stored))
	for i, sr := range stored {
		raws[i] = sr.Raw
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}
	lock, err := lockFile(ctx, exportPath)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck

	if err := writeRecordsFile(ctx, exportPath, raws); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(raws),
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath generates the default export path.
// Format: ~/.wrench/exports/all-<timestamp>.json or batch-<id>-<timestamp>.json
func defaultExportPath(batchID string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}

	timestamp := now.Format("2006-01-02T150405")
	name := "all"
	if batchID != "" {
		name = "batch-" + SanitizeForFilename(batchID)
	}

	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", name, timestamp)), nil
}
