package ops

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

func TestAppendFile_CreatesTarget(t *testing.T) {
	dir := t.TempDir()
	from := writeFile(t, dir, "run1.json", sampleJSON)
	to := filepath.Join(dir, "all.json")

	out, err := AppendFile(context.Background(), unsafeConfig(), AppendFileInput{To: to, From: from})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Appended)
	assert.Equal(t, 4, out.Total)

	records, err := LoadRecords(context.Background(), nil, unsafeConfig(), to)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestAppendFile_AppendsInOrder(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := unsafeConfig()
	to := writeFile(t, dir, "all.json", sampleJSON)
	from := writeFile(t, dir, "run2.json", `[
		{"brand": "Ryobi", "problem": "new", "component": "fan", "successful": true,
		 "video_url": "https://example.com/v/9", "video_title": "Ryobi fix"}
	]`)

	out, err := AppendFile(ctx, cfg, AppendFileInput{To: to, From: from})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Appended)
	assert.Equal(t, 5, out.Total)

	records, err := LoadRecords(ctx, nil, cfg, to)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "Ryobi", repair.Deref(records[4].Brand))
	assert.Equal(t, []string{"Fan"}, records[4].Components)
	assert.Equal(t, "DeWalt", repair.Deref(records[0].Brand))
}

func TestAppendFile_BadSourceLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	to := writeFile(t, dir, "all.json", sampleJSON)
	from := writeFile(t, dir, "broken.json", `[{"problem": }`)

	before, err := os.ReadFile(to)
	require.NoError(t, err)

	_, err = AppendFile(context.Background(), unsafeConfig(), AppendFileInput{To: to, From: from})
	assert.True(t, errors.Is(err, errors.ErrInvalidRecords))

	after, err := os.ReadFile(to)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAppendRecords_RewritesInRecordSchema(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	to := writeFile(t, dir, "all.json", `[
		{"brand": "Bosch", "problem": "dead", "component": "switch", "successful": true,
		 "video_url": "https://example.com/v/1", "video_title": "Bosch fix", "channel": "shop"}
	]`)

	out, err := AppendRecords(ctx, unsafeConfig(), to, []repair.RawRecord{{Problem: "noisy"}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)

	data, err := os.ReadFile(to)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "channel")
	assert.Contains(t, string(data), `"brand": "Bosch"`)

	_, err = os.Stat(to + ".lock")
	assert.NoError(t, err, "lock sidecar stays next to the target")
}

func TestAppendFile_RequiresBothPaths(t *testing.T) {
	_, err := AppendFile(context.Background(), unsafeConfig(), AppendFileInput{To: "a.json"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestAppendRecords_Concurrent(t *testing.T) {
	dir := t.TempDir()
	to := filepath.Join(dir, "all.json")
	cfg := unsafeConfig()

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws := []repair.RawRecord{{Problem: "p", VideoURL: "u", VideoTitle: string(rune('a' + i))}}
			_, err := AppendRecords(context.Background(), cfg, to, raws)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := LoadRecords(context.Background(), nil, cfg, to)
	require.NoError(t, err)
	assert.Len(t, records, writers, "every locked append survives")
}
