package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/repair"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	File   string // optional, read a JSON array instead of the store
	Filter FilterInput
	Limit  int // default: 50, max: 500
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []repair.Record `json:"items"`
	Pagination Pagination      `json:"pagination"`
	Sort       string          `json:"sort"`
}

// List returns a page of normalized records in store order.
func List(ctx context.Context, database *sql.DB, cfg *config.Config, input ListInput) (*ListOutput, error) {
	records, _, err := loadFiltered(ctx, database, cfg, input.File, input.Filter)
	if err != nil {
		return nil, err
	}

	page, start, end := paginate(len(records), input.Limit, input.Offset)

	items := records[start:end]
	if items == nil {
		items = []repair.Record{}
	}

	return &ListOutput{
		Items:      items,
		Pagination: page,
		Sort:       "seq_asc",
	}, nil
}
