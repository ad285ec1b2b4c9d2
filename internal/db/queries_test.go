package db

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/repair"
)

// stringPtr returns a pointer to the given string.
func stringPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRaws() []repair.RawRecord {
	return []repair.RawRecord{
		{
			Brand:      stringPtr("DeWalt"),
			ToolType:   stringPtr("Drill"),
			Problem:    "won't start",
			Component:  stringPtr("motor brushes"),
			Successful: boolPtr(true),
			VideoURL:   "https://example.com/v/1",
			VideoTitle: "Drill fix",
		},
		{
			Brand:         stringPtr("Makita"),
			ToolType:      stringPtr("Grinder"),
			Model:         stringPtr("GA4530"),
			Problem:       "noisy",
			Components:    repair.ComponentList{"bearings", "switch"},
			Successful:    boolPtr(false),
			FailureReason: stringPtr("too expensive"),
			VideoURL:      "https://example.com/v/2",
			VideoTitle:    "Grinder teardown",
		},
		{
			Problem:    "unknown",
			VideoURL:   "https://example.com/v/3",
			VideoTitle: "Mystery tool",
		},
	}
}

func TestInsertBatchAndListStored(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	b := &Batch{ID: "01BATCH0001", Source: stringPtr("records.json"), ImportedAt: 1000}
	if err := InsertBatch(ctx, db, b, sampleRaws()); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if b.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", b.RecordCount)
	}

	stored, err := ListStored(ctx, db, "")
	if err != nil {
		t.Fatalf("ListStored failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("len(stored) = %d, want 3", len(stored))
	}

	for i, sr := range stored {
		if sr.Seq != i+1 {
			t.Errorf("stored[%d].Seq = %d, want %d", i, sr.Seq, i+1)
		}
		if sr.BatchID != "01BATCH0001" {
			t.Errorf("stored[%d].BatchID = %q", i, sr.BatchID)
		}
	}

	first := stored[0].Raw
	if first.Component == nil || *first.Component != "motor brushes" {
		t.Errorf("Component = %v, want motor brushes", first.Component)
	}
	if first.Components != nil {
		t.Errorf("Components = %v, want nil (legacy shape preserved)", first.Components)
	}
	if first.Successful == nil || !*first.Successful {
		t.Errorf("Successful = %v, want true", first.Successful)
	}

	second := stored[1].Raw
	if len(second.Components) != 2 || second.Components[0] != "bearings" {
		t.Errorf("Components = %v, want [bearings switch]", second.Components)
	}
	if second.Model == nil || *second.Model != "GA4530" {
		t.Errorf("Model = %v", second.Model)
	}

	third := stored[2].Raw
	if third.Brand != nil || third.Successful != nil || third.Component != nil {
		t.Errorf("expected nulls to round-trip, got %+v", third)
	}
}

func TestListRecords_Canonicalizes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := InsertBatch(ctx, db, &Batch{ID: "01B1", ImportedAt: 1}, sampleRaws()); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	records, err := ListRecords(ctx, db)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if got := records[1].Components; len(got) != 2 || got[0] != "Bearing" || got[1] != "Switch" {
		t.Errorf("Components = %v, want [Bearing Switch]", got)
	}
	if records[1].FailureCategory != repair.CategoryNotEconomical {
		t.Errorf("FailureCategory = %q", records[1].FailureCategory)
	}
	if records[2].Outcome != repair.OutcomePending {
		t.Errorf("Outcome = %q, want Pending", records[2].Outcome)
	}
}

func TestListStored_ByBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	raws := sampleRaws()
	if err := InsertBatch(ctx, db, &Batch{ID: "01A", ImportedAt: 1}, raws[:1]); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := InsertBatch(ctx, db, &Batch{ID: "01B", ImportedAt: 2}, raws[1:]); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := ListStored(ctx, db, "01B")
	if err != nil {
		t.Fatalf("ListStored failed: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 2 || got[1].Seq != 3 {
		t.Errorf("batch 01B = %+v, want seqs 2,3", got)
	}

	n, err := CountRecords(ctx, db)
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if n != 3 {
		t.Errorf("CountRecords = %d, want 3", n)
	}
}

func TestListBatches(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	empty, err := ListBatches(ctx, db)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListBatches on empty db = %v, want empty non-nil", empty)
	}

	raws := sampleRaws()
	_ = InsertBatch(ctx, db, &Batch{ID: "01OLD", ImportedAt: 100}, raws[:1])
	_ = InsertBatch(ctx, db, &Batch{ID: "01NEW", Source: stringPtr("b.json"), ImportedAt: 200}, raws)

	batches, err := ListBatches(ctx, db)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("len = %d, want 2", len(batches))
	}
	if batches[0].ID != "01NEW" || batches[0].RecordCount != 3 {
		t.Errorf("batches[0] = %+v", batches[0])
	}
	if batches[1].Source != nil {
		t.Errorf("batches[1].Source = %v, want nil", batches[1].Source)
	}

	b, err := GetBatch(ctx, db, "01NEW")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if b.Source == nil || *b.Source != "b.json" {
		t.Errorf("Source = %v", b.Source)
	}

	_, err = GetBatch(ctx, db, "01MISSING")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetBatch missing error = %v, want NOT_FOUND", err)
	}
}

func TestRecordsAreAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := InsertBatch(ctx, db, &Batch{ID: "01B", ImportedAt: 1}, sampleRaws()); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	for _, stmt := range []string{
		`UPDATE records SET brand = 'Ryobi' WHERE seq = 1`,
		`DELETE FROM records WHERE seq = 1`,
	} {
		_, err := db.Exec(stmt)
		if err == nil {
			t.Errorf("%q succeeded, want trigger abort", stmt)
			continue
		}
		if !strings.Contains(err.Error(), "records are append-only") {
			t.Errorf("%q error = %v, want append-only abort", stmt, err)
		}
	}

	n, _ := CountRecords(ctx, db)
	if n != 3 {
		t.Errorf("CountRecords = %d, want 3", n)
	}
}

func TestInsertBatch_Cancelled(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := InsertBatch(ctx, db, &Batch{ID: "01C", ImportedAt: 1}, sampleRaws())
	if err == nil {
		t.Fatal("InsertBatch with cancelled context succeeded")
	}

	n, _ := CountRecords(context.Background(), db)
	if n != 0 {
		t.Errorf("CountRecords = %d, want 0 after failed batch", n)
	}
	batches, _ := ListBatches(context.Background(), db)
	if len(batches) != 0 {
		t.Errorf("batches = %v, want none after failed batch", batches)
	}
}
