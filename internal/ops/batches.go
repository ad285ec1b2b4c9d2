package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wrench/internal/db"
)

// BatchesOutput contains the result of the Batches operation.
// Records is the number of stored records across all batches.
type BatchesOutput struct {
	Items   []db.Batch `json:"items"`
	Records int        `json:"records"`
}

// Batches lists import batches newest first, with the total record count.
func Batches(ctx context.Context, database *sql.DB) (*BatchesOutput, error) {
	items, err := db.ListBatches(ctx, database)
	if err != nil {
		return nil, err
	}
	records, err := db.CountRecords(ctx, database)
	if err != nil {
		return nil, err
	}
	return &BatchesOutput{Items: items, Records: records}, nil
}
