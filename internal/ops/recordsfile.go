package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

const lockRetryDelay = 50 * time.Millisecond

// readRecordsFile decodes a JSON array of raw records. The whole file must be
// valid; the first bad element fails the read with its index. maxRecords <= 0
// means no limit.
func readRecordsFile(ctx context.Context, path string, maxRecords int) ([]repair.RawRecord, error) {
	file, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeRecords(ctx, bufio.NewReader(file), maxRecords)
}

// decodeRecords streams a JSON array element by element so errors can name
// the offending index and oversized inputs are rejected early.
func decodeRecords(ctx context.Context, r io.Reader, maxRecords int) ([]repair.RawRecord, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, errors.NewInvalidRecords(-1, "file is empty")
	}
	if err != nil {
		return nil, errors.NewInvalidRecords(-1, err.Error())
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, errors.NewInvalidRecords(-1, "expected a JSON array of records")
	}

	records := []repair.RawRecord{}
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("read records")
		}
		if maxRecords > 0 && i >= maxRecords {
			return nil, errors.NewTooManyRecords(maxRecords, i+countRemaining(dec))
		}

		var rec repair.RawRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.NewInvalidRecords(i, err.Error())
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.NewInvalidRecords(-1, fmt.Sprintf("unterminated array: %v", err))
	}
	return records, nil
}

// countRemaining skips the rest of the array and reports how many elements
// it held. Used only to give an accurate count in TOO_MANY_RECORDS.
func countRemaining(dec *json.Decoder) int {
	n := 0
	for dec.More() {
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			break
		}
		n++
	}
	return n
}

// writeRecordsFile writes records as an indented JSON array via a temp file
// and atomic rename, so an existing file survives a failed write.
func writeRecordsFile(ctx context.Context, path string, records []repair.RawRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString("[\n"); err != nil {
		return errors.NewInternal(err)
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("write records")
		}
		data, err := json.MarshalIndent(rec, "  ", "  ")
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := w.WriteString("  "); err != nil {
			return errors.NewInternal(err)
		}
		if _, err := w.Write(data); err != nil {
			return errors.NewInternal(err)
		}
		sep := ",\n"
		if i == len(records)-1 {
			sep = "\n"
		}
		if _, err := w.WriteString(sep); err != nil {
			return errors.NewInternal(err)
		}
	}
	if _, err := w.WriteString("]\n"); err != nil {
		return errors.NewInternal(err)
	}
	if err := w.Flush(); err != nil {
		return errors.NewInternal(err)
	}

	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize file: %w", err))
	}

	success = true
	return nil
}

// lockFile takes an exclusive advisory lock on path's sidecar lock file,
// waiting until ctx is done. Callers must Unlock.
func lockFile(ctx context.Context, path string) (*flock.Flock, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("lock " + filepath.Base(path))
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to lock %s: %w", path, err))
	}
	if !ok {
		return nil, errors.NewCancelled("lock " + filepath.Base(path))
	}
	return fl, nil
}
