package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meal-planner/internal/database"
	"meal-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.RecordCall(ctx, shared.CallMeta{Collaborator: "ocr.space", Operation: "recognize", Latency: 120 * time.Millisecond})
	store.RecordCall(ctx, shared.CallMeta{Collaborator: "scraper", Operation: "scrape", Latency: 80 * time.Millisecond, Err: errors.New("timeout")})
	store.Report(ctx, "remote", "capture.search", errors.New("timeout"))
	store.Report(ctx, "remote", "capture.search", nil)

	t.Run("DailySummary", func(t *testing.T) {
		summary, err := store.GetDailySummary(ctx, 1)
		if err != nil {
			t.Fatalf("GetDailySummary failed: %v", err)
		}
		if len(summary) != 1 {
			t.Fatalf("expected 1 day, got %d", len(summary))
		}
		day := summary[0]
		if day.Calls != 2 || day.Failures != 1 || day.Reported != 1 {
			t.Errorf("unexpected totals: %+v", day)
		}
		if day.AvgLatencyMS != 100 {
			t.Errorf("expected avg latency 100, got %v", day.AvgLatencyMS)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		old := CallMetric{Collaborator: "firestore", Operation: "list", OK: true, Timestamp: time.Now().UTC().AddDate(0, 0, -40)}
		if err := store.Record(ctx, old); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		n, err := store.Cleanup(ctx, 30)
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 row removed, got %d", n)
		}
	})
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), make([]byte, 2048), 0644); err != nil {
		t.Fatal(err)
	}
	h := GetSysHealth(dir)
	if h.DataDiskSize != "2.0 kB" {
		t.Errorf("expected 2.0 kB, got %q", h.DataDiskSize)
	}
	if h.Goroutines < 1 {
		t.Errorf("expected at least one goroutine, got %d", h.Goroutines)
	}
}
