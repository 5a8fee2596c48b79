package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
)

func candlesEvery5m(start time.Time, n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		out = append(out, models.Candle{Timestamp: ts, Open: 1, High: 1, Low: 1, Close: float64(i), Volume: 10})
	}
	return out
}

func TestChunkKeyFormat(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	got := ChunkKey("BTC", start, end)
	want := "BTC_20240301_0000_20240308_0000_5m"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFileChunkStorePutGetSlices(t *testing.T) {
	s, err := NewFileChunkStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	spanStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	spanEnd := spanStart.Add(2 * time.Hour)
	// Stored chunk carries fetch padding on both sides.
	candles := candlesEvery5m(spanStart.Add(-30*time.Minute), 37)

	if err := s.Put(ctx, "BTC", spanStart, spanEnd, candles); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get(ctx, "BTC", spanStart, spanEnd)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got[0].Timestamp.Before(spanStart) {
		t.Fatalf("slice leaked padding before start: %v", got[0].Timestamp)
	}
	if got[len(got)-1].Timestamp.After(spanEnd) {
		t.Fatalf("slice leaked padding after end: %v", got[len(got)-1].Timestamp)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 candles in [start,end], got %d", len(got))
	}
}

func TestFileChunkStoreMissOnDifferentSpan(t *testing.T) {
	s, err := NewFileChunkStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	spanStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	spanEnd := spanStart.Add(time.Hour)
	if err := s.Put(ctx, "BTC", spanStart, spanEnd, candlesEvery5m(spanStart, 13)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "BTC", spanStart, spanEnd.Add(time.Hour)); ok {
		t.Fatalf("expected miss for a span that was never stored")
	}
	if _, ok, _ := s.Get(ctx, "ETH", spanStart, spanEnd); ok {
		t.Fatalf("expected miss for another instrument")
	}
}

func TestFileChunkStoreMissWhenDataDoesNotCover(t *testing.T) {
	s, err := NewFileChunkStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	spanStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	spanEnd := spanStart.Add(2 * time.Hour)
	// Data starts an hour late: the chunk exists but does not cover the span.
	if err := s.Put(ctx, "BTC", spanStart, spanEnd, candlesEvery5m(spanStart.Add(time.Hour), 13)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "BTC", spanStart, spanEnd); ok {
		t.Fatalf("expected miss when stored data does not cover the span")
	}
}

func TestFileChunkStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	spanStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	spanEnd := spanStart.Add(time.Hour)

	s1, err := NewFileChunkStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s1.Put(ctx, "BTC", spanStart, spanEnd, candlesEvery5m(spanStart, 13)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewFileChunkStore(dir, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, ok, err := s2.Get(ctx, "BTC", spanStart, spanEnd)
	if err != nil || !ok {
		t.Fatalf("expected hit after restart, ok=%v err=%v", ok, err)
	}
	if len(got) != 13 {
		t.Fatalf("expected 13 candles, got %d", len(got))
	}
}

func TestFileChunkStoreCorruptedFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := NewFileChunkStore(dir, nil)
	if err != nil {
		t.Fatalf("expected corrupted cache to degrade to empty, got %v", err)
	}
	if len(s.m) != 0 {
		t.Fatalf("expected empty cache, got %d entries", len(s.m))
	}
}

func TestFileChunkStoreSweep(t *testing.T) {
	s, err := NewFileChunkStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	now := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	oldStart := now.AddDate(0, 0, -31)
	freshStart := now.AddDate(0, 0, -29)

	if err := s.Put(ctx, "BTC", oldStart, oldStart.Add(time.Hour), candlesEvery5m(oldStart, 13)); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := s.Put(ctx, "BTC", freshStart, freshStart.Add(time.Hour), candlesEvery5m(freshStart, 13)); err != nil {
		t.Fatalf("put fresh: %v", err)
	}
	// Unparsable key must never be evicted.
	s.m["garbage"] = candlesEvery5m(oldStart, 1)

	removed, err := s.Sweep(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}
	if _, ok := s.m[ChunkKey("BTC", oldStart, oldStart.Add(time.Hour))]; ok {
		t.Fatalf("expected 31-day-old chunk to be evicted")
	}
	if _, ok := s.m[ChunkKey("BTC", freshStart, freshStart.Add(time.Hour))]; !ok {
		t.Fatalf("expected 29-day-old chunk to be retained")
	}
	if _, ok := s.m["garbage"]; !ok {
		t.Fatalf("expected unparsable key to be kept")
	}
}
