package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/cache"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/queue"
)

const candleTimeframe = "5m"

// HistoryConfig tunes the price assembler.
type HistoryConfig struct {
	ChunkDays    int
	FetchLimit   int
	FetchPadding time.Duration
	Workers      int
	MemoTTL      time.Duration
}

func (c *HistoryConfig) applyDefaults() {
	if c.ChunkDays <= 0 {
		c.ChunkDays = 7
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 2000
	}
	if c.FetchPadding <= 0 {
		c.FetchPadding = 30 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.MemoTTL <= 0 {
		c.MemoTTL = cache.DefaultTTL
	}
}

// HistoryUseCase assembles historical close-price series from the chunk
// store, fetching missing chunks from the provider, and memoizes the
// assembled (unfiltered) series in the runtime cache.
type HistoryUseCase struct {
	provider drepo.MarketDataProvider
	chunks   drepo.ChunkStore
	memo     *cache.RuntimeCache
	metrics  drepo.Metrics
	cfg      HistoryConfig
	l        *applogger.Logger
}

func NewHistoryUseCase(provider drepo.MarketDataProvider, chunks drepo.ChunkStore, memo *cache.RuntimeCache, metrics drepo.Metrics, cfg HistoryConfig, l *applogger.Logger) *HistoryUseCase {
	cfg.applyDefaults()
	return &HistoryUseCase{
		provider: provider,
		chunks:   chunks,
		memo:     memo,
		metrics:  metrics,
		cfg:      cfg,
		l:        l,
	}
}

// GetHistoricalPrices returns the 5-minute close-price series for
// [start, end]. The memo stores the unfiltered series; the session filter
// is applied on every return so one memo entry serves all sessions.
func (u *HistoryUseCase) GetHistoricalPrices(ctx context.Context, instrument string, start, end time.Time, session models.Session) (models.PriceSeries, error) {
	start, end = start.UTC(), end.UTC()
	key := cache.PriceKey(instrument, start, end)

	if v, ok := u.memo.Get(key); ok {
		u.recordCache("runtime", "hit")
		return models.FilterBySession(v.(models.PriceSeries), session), nil
	}
	u.recordCache("runtime", "miss")

	series, err := u.assemble(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}

	u.memo.Put(key, series, u.cfg.MemoTTL)
	return models.FilterBySession(series, session), nil
}

// assemble splits the range into chunk spans, satisfies each span from the
// chunk store or the provider, and merges the results. A span whose fetch
// fails is skipped; the series is built from whatever spans succeeded.
func (u *HistoryUseCase) assemble(ctx context.Context, instrument string, start, end time.Time) (models.PriceSeries, error) {
	var candles []models.Candle
	for _, span := range splitSpans(start, end, u.cfg.ChunkDays) {
		part, err := u.loadSpan(ctx, instrument, span.start, span.end)
		if err != nil {
			if u.l != nil {
				u.l.Warn("span fetch failed, skipping",
					applogger.String("instrument", instrument),
					applogger.String("span_start", span.start.Format(time.RFC3339)),
					applogger.Error(err))
			}
			if u.metrics != nil {
				u.metrics.RecordError("span_fetch")
			}
			continue
		}
		candles = append(candles, part...)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no price data for %s: %w", instrument, models.ErrNoData)
	}

	return models.ClosesOf(dedupSorted(candles)), nil
}

// loadSpan returns the candles covering one chunk span, from the store when
// it has full coverage, otherwise from the provider. Fetches carry padding
// on both sides; the whole padded chunk is stored and the span sliced out.
func (u *HistoryUseCase) loadSpan(ctx context.Context, instrument string, start, end time.Time) ([]models.Candle, error) {
	stored, ok, err := u.chunks.Get(ctx, instrument, start, end)
	if err != nil {
		if u.l != nil {
			u.l.Warn("chunk read failed", applogger.String("instrument", instrument), applogger.Error(err))
		}
	} else if ok {
		u.recordCache("chunk", "hit")
		return stored, nil
	}
	u.recordCache("chunk", "miss")

	fetched, err := u.fetchRange(ctx, instrument, start.Add(-u.cfg.FetchPadding), end.Add(u.cfg.FetchPadding))
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, fmt.Errorf("%s %s: %w", instrument, start.Format(time.RFC3339), models.ErrNoData)
	}

	if err := u.chunks.Put(ctx, instrument, start, end, fetched); err != nil {
		if u.l != nil {
			u.l.Warn("chunk write failed", applogger.String("instrument", instrument), applogger.Error(err))
		}
	}
	return cache.SliceCandles(fetched, start, end), nil
}

// fetchRange pages through the provider until [from, to] is covered or the
// provider stops returning new candles. One chunk span can exceed a single
// request's candle limit.
func (u *HistoryUseCase) fetchRange(ctx context.Context, instrument string, from, to time.Time) ([]models.Candle, error) {
	var out []models.Candle
	for cur := from; cur.Before(to); {
		batch, err := u.provider.FetchCandles(ctx, instrument, candleTimeframe, cur, u.cfg.FetchLimit)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		next := batch[len(batch)-1].Timestamp.Add(5 * time.Minute)
		if !next.After(cur) {
			break
		}
		cur = next
	}
	return out, nil
}

// GetPriceChange reports the percentage move across [start, end] plus the
// current price. With a session the move is measured between the first and
// last in-session points.
func (u *HistoryUseCase) GetPriceChange(ctx context.Context, instrument string, start, end time.Time, session models.Session) (models.PriceChange, error) {
	series, err := u.GetHistoricalPrices(ctx, instrument, start, end, session)
	if err != nil {
		return models.PriceChange{}, err
	}
	if len(series) < 2 {
		return models.PriceChange{}, fmt.Errorf("price change %s: %w", instrument, models.ErrInsufficientData)
	}

	first, _ := series.First()
	last, _ := series.Last()
	if first.Price == 0 {
		return models.PriceChange{}, fmt.Errorf("price change %s: %w", instrument, models.ErrInsufficientData)
	}

	current, err := u.provider.FetchLastPrice(ctx, instrument)
	if err != nil {
		current = last.Price
	}

	return models.PriceChange{
		Instrument:   instrument,
		ChangePct:    (last.Price - first.Price) / first.Price * 100,
		CurrentPrice: current,
	}, nil
}

// GetPriceChangesBatch computes price changes for many instruments over a
// worker pool. Instruments whose lookup fails are omitted from the result.
// The whole batch result is memoized under the window and session key.
func (u *HistoryUseCase) GetPriceChangesBatch(ctx context.Context, instruments []string, start, end time.Time, session models.Session) (map[string]models.PriceChange, error) {
	start, end = start.UTC(), end.UTC()
	key := cache.BatchKey(start, end, string(session))

	if v, ok := u.memo.Get(key); ok {
		u.recordCache("runtime", "hit")
		return v.(map[string]models.PriceChange), nil
	}
	u.recordCache("runtime", "miss")

	type outcome struct {
		instrument string
		change     models.PriceChange
		err        error
	}
	results := make([]outcome, len(instruments))
	idx := make(map[string]int, len(instruments))
	for i, ins := range instruments {
		idx[ins] = i
	}

	queue.Run(ctx, u.cfg.Workers, instruments, func(ctx context.Context, instrument string) {
		change, err := u.GetPriceChange(ctx, instrument, start, end, session)
		results[idx[instrument]] = outcome{instrument: instrument, change: change, err: err}
	})

	out := make(map[string]models.PriceChange, len(instruments))
	for _, r := range results {
		if r.err != nil {
			continue
		}
		out[r.instrument] = r.change
	}

	u.memo.Put(key, out, u.cfg.MemoTTL)
	return out, nil
}

func (u *HistoryUseCase) recordCache(layer, event string) {
	if u.metrics != nil {
		u.metrics.RecordCacheEvent(layer, event)
	}
}

type span struct {
	start, end time.Time
}

// splitSpans cuts [start, end] into consecutive spans of at most chunkDays.
func splitSpans(start, end time.Time, chunkDays int) []span {
	width := time.Duration(chunkDays) * 24 * time.Hour
	var out []span
	for cur := start; cur.Before(end); {
		next := cur.Add(width)
		if next.After(end) {
			next = end
		}
		out = append(out, span{start: cur, end: next})
		cur = next
	}
	if len(out) == 0 {
		out = append(out, span{start: start, end: end})
	}
	return out
}

// dedupSorted sorts candles ascending and drops duplicate timestamps,
// keeping the first occurrence in input order.
func dedupSorted(candles []models.Candle) []models.Candle {
	seen := make(map[int64]struct{}, len(candles))
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		ms := c.Timestamp.UnixMilli()
		if _, ok := seen[ms]; ok {
			continue
		}
		seen[ms] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
