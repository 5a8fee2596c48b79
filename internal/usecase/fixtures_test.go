package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/cache"
)

// fakeProvider serves candles from in-memory fixtures and counts fetches.
type fakeProvider struct {
	mu         sync.Mutex
	metas      []models.InstrumentMeta
	candles    map[string][]models.Candle
	last       map[string]float64
	failAfter  time.Time // fetches starting after this time fail; zero = never
	fetchCalls int
}

func (p *fakeProvider) LoadInstruments(_ context.Context) ([]models.InstrumentMeta, error) {
	return p.metas, nil
}

func (p *fakeProvider) FetchCandles(_ context.Context, instrument, _ string, since time.Time, limit int) ([]models.Candle, error) {
	p.mu.Lock()
	p.fetchCalls++
	p.mu.Unlock()

	if !p.failAfter.IsZero() && since.After(p.failAfter) {
		return nil, fmt.Errorf("provider down")
	}

	var out []models.Candle
	for _, c := range p.candles[instrument] {
		if c.Timestamp.Before(since) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchLastPrice(_ context.Context, instrument string) (float64, error) {
	v, ok := p.last[instrument]
	if !ok {
		return 0, fmt.Errorf("no last price for %s", instrument)
	}
	return v, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls
}

// gen5m builds n 5-minute candles from start with closes from priceFn.
func gen5m(start time.Time, n int, priceFn func(i int) float64) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		p := priceFn(i)
		out = append(out, models.Candle{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      p, High: p, Low: p, Close: p, Volume: 1,
		})
	}
	return out
}

func newHistory(t *testing.T, p *fakeProvider) *HistoryUseCase {
	t.Helper()
	chunks, err := cache.NewFileChunkStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("chunk store: %v", err)
	}
	return NewHistoryUseCase(p, chunks, cache.NewRuntimeCache(), nil, HistoryConfig{}, nil)
}
