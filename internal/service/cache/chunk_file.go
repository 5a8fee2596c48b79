package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
)

const (
	chunkGranularity = "5m"
	chunkTimeLayout  = "20060102_1504"
	chunkDateLayout  = "20060102"
	cacheFileName    = "price_cache.json"
)

// ChunkKey builds the persistent cache key for one instrument span:
// {instrument}_{start}_{end}_{granularity} with times as %Y%m%d_%H%M UTC.
func ChunkKey(instrument string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		instrument,
		start.UTC().Format(chunkTimeLayout),
		end.UTC().Format(chunkTimeLayout),
		chunkGranularity,
	)
}

// FileChunkStore persists candle chunks as a single JSON mapping on disk,
// loaded whole at startup and rewritten whole on every Put. An unreadable
// file degrades to an empty cache rather than failing startup.
type FileChunkStore struct {
	mu   sync.Mutex
	m    map[string][]models.Candle
	path string
	l    *applogger.Logger
	now  func() time.Time
}

func NewFileChunkStore(dir string, l *applogger.Logger) (*FileChunkStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	s := &FileChunkStore{
		m:    make(map[string][]models.Candle),
		path: filepath.Join(dir, cacheFileName),
		l:    l,
		now:  time.Now,
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) && l != nil {
			l.Warn("chunk cache unreadable, starting empty", applogger.Error(err))
		}
		return s, nil
	}
	if err := json.Unmarshal(b, &s.m); err != nil {
		if l != nil {
			l.Warn("chunk cache corrupted, starting empty", applogger.Error(err))
		}
		s.m = make(map[string][]models.Candle)
	}
	return s, nil
}

// Get returns the candles for [start, end] if a stored chunk under the
// span's key fully covers the range, sliced to the requested bounds.
func (s *FileChunkStore) Get(_ context.Context, instrument string, start, end time.Time) ([]models.Candle, bool, error) {
	key := ChunkKey(instrument, start, end)

	s.mu.Lock()
	candles, ok := s.m[key]
	s.mu.Unlock()
	if !ok || len(candles) == 0 {
		return nil, false, nil
	}

	// The stored chunk includes fetch padding; it only counts as a hit when
	// its data actually covers the requested range.
	if candles[0].Timestamp.After(start) || candles[len(candles)-1].Timestamp.Before(end) {
		return nil, false, nil
	}
	return SliceCandles(candles, start, end), true, nil
}

// Put stores the chunk under its span key and flushes the whole mapping to
// disk (write-through; chunk writes are rare relative to reads).
func (s *FileChunkStore) Put(_ context.Context, instrument string, start, end time.Time, candles []models.Candle) error {
	key := ChunkKey(instrument, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = candles
	return s.flushLocked()
}

// Sweep removes entries whose key-embedded start date is older than maxAge.
// Keys that do not parse are kept.
func (s *FileChunkStore) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.m {
		date, ok := ChunkKeyDate(key)
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			delete(s.m, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.flushLocked(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *FileChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *FileChunkStore) flushLocked() error {
	b, err := json.Marshal(s.m)
	if err != nil {
		return fmt.Errorf("encode chunk cache: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write chunk cache: %w", err)
	}
	return nil
}

// ChunkKeyDate extracts the coarse start date embedded in a chunk key.
func ChunkKeyDate(key string) (time.Time, bool) {
	parts := strings.Split(key, "_")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(chunkDateLayout, parts[1], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SliceCandles returns the candles with start <= timestamp <= end. Input
// must be sorted ascending.
func SliceCandles(candles []models.Candle, start, end time.Time) []models.Candle {
	lo := sort.Search(len(candles), func(i int) bool {
		return !candles[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil
	}
	out := make([]models.Candle, hi-lo)
	copy(out, candles[lo:hi])
	return out
}
