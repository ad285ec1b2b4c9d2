package ops

import (
	"context"
	"os"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// AppendFileInput contains parameters for the AppendFile operation.
type AppendFileInput struct {
	To   string // required, accumulated JSON array (created if missing)
	From string // required, JSON array of new records
}

// AppendFileOutput contains the result of the AppendFile operation.
type AppendFileOutput struct {
	Path     string `json:"path"`
	Appended int    `json:"appended"`
	Total    int    `json:"total"`
}

// AppendFile appends the records of one JSON array file onto another, the
// way extraction runs accumulate into a single records file. The target is
// held under an exclusive lock and rewritten atomically; see AppendRecords
// for what the rewrite keeps.
func AppendFile(ctx context.Context, cfg *config.Config, input AppendFileInput) (*AppendFileOutput, error) {
	if input.To == "" || input.From == "" {
		return nil, errors.NewInvalidRequest("both to and from paths are required")
	}
	if err := ValidatePath(input.From, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	maxRecords := 0
	if cfg != nil {
		maxRecords = cfg.MaxImportRecords
	}
	incoming, err := readRecordsFile(ctx, input.From, maxRecords)
	if err != nil {
		return nil, err
	}

	return AppendRecords(ctx, cfg, input.To, incoming)
}

// AppendRecords appends raws onto the JSON array file at path.
//
// The whole file is decoded and rewritten, so existing entries come back in
// the record schema: fields it does not know are dropped and formatting is
// not kept. The lock is taken on a path+".lock" sidecar, which is left in
// place after the call.
func AppendRecords(ctx context.Context, cfg *config.Config, path string, raws []repair.RawRecord) (*AppendFileOutput, error) {
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	lock, err := lockFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck

	existing := []repair.RawRecord{}
	if _, statErr := os.Stat(path); statErr == nil {
		existing, err = readRecordsFile(ctx, path, 0)
		if err != nil {
			return nil, err
		}
	}

	merged := append(existing, raws...)
	if err := writeRecordsFile(ctx, path, merged); err != nil {
		return nil, err
	}

	return &AppendFileOutput{
		Path:     path,
		Appended: len(raws),
		Total:    len(merged),
	}, nil
}
