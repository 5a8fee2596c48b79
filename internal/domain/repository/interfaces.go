package repository

import (
	"context"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
)

// MarketDataProvider supplies the instrument catalog and raw candle data.
// Rate limiting is the provider's concern; callers must tolerate per-call
// latency and occasional empty responses.
type MarketDataProvider interface {
	LoadInstruments(ctx context.Context) ([]models.InstrumentMeta, error)
	FetchCandles(ctx context.Context, instrument, timeframe string, since time.Time, limit int) ([]models.Candle, error)
	FetchLastPrice(ctx context.Context, instrument string) (float64, error)
}

// ChunkStore persists fixed-granularity candle chunks keyed by
// (instrument, span start, span end). Get hits only when a previously
// stored chunk fully covers [start, end]; implementations slice to the
// requested sub-range. Chunks are read and written as whole units.
type ChunkStore interface {
	Get(ctx context.Context, instrument string, start, end time.Time) ([]models.Candle, bool, error)
	Put(ctx context.Context, instrument string, start, end time.Time, candles []models.Candle) error
	// Sweep evicts chunks whose key-embedded date is older than maxAge and
	// returns how many were removed. Unparsable keys are kept.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// ResultPublisher forwards computed artifacts to downstream consumers.
type ResultPublisher interface {
	PublishBetaTables(ctx context.Context, from, to time.Time, ref1, ref2 models.BetaTable) error
	PublishPatterns(ctx context.Context, result *models.PatternResult) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordFetch(operation, result string)
	RecordCacheEvent(layer, event string)
	RecordError(kind string)
	RecordLastPrice(instrument string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBatchProgress(done, total int)
}
