package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/db"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// LoadRecords returns canonical records from file when set, otherwise from
// the store. Normalization runs on every load; nothing is cached.
func LoadRecords(ctx context.Context, database *sql.DB, cfg *config.Config, file string) ([]repair.Record, error) {
	if file != "" {
		if err := ValidatePath(file, PathCheckRead, cfg); err != nil {
			return nil, err
		}
		maxRecords := 0
		if cfg != nil {
			maxRecords = cfg.MaxImportRecords
		}
		raws, err := readRecordsFile(ctx, file, maxRecords)
		if err != nil {
			return nil, err
		}
		return repair.CanonicalizeAll(raws), nil
	}

	if database == nil {
		return nil, errors.NewInvalidRequest("no database open and no file given")
	}
	return db.ListRecords(ctx, database)
}

// loadFiltered loads records and applies the filter.
func loadFiltered(ctx context.Context, database *sql.DB, cfg *config.Config, file string, in FilterInput) ([]repair.Record, repair.Filter, error) {
	f, err := in.ToFilter()
	if err != nil {
		return nil, f, err
	}
	records, err := LoadRecords(ctx, database, cfg, file)
	if err != nil {
		return nil, f, err
	}
	return f.Apply(records), f, nil
}
