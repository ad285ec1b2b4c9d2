package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/repair"
)

// Filters returns the distinct values available for each filter dimension.
func Filters(ctx context.Context, database *sql.DB, cfg *config.Config, file string) (*repair.FilterOptions, error) {
	records, err := LoadRecords(ctx, database, cfg, file)
	if err != nil {
		return nil, err
	}
	opts := repair.Options(records)
	return &opts, nil
}
