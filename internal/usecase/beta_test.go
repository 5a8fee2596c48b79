package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
)

// leveragedFixture builds reference candles with oscillating returns and an
// instrument whose returns are exactly factor times the reference's.
func leveragedFixture(start time.Time, n int, factor float64) (ref, inst []models.Candle) {
	refPrice := make([]float64, n)
	instPrice := make([]float64, n)
	refPrice[0], instPrice[0] = 100, 40
	for i := 1; i < n; i++ {
		r := 0.01 * math.Sin(float64(i))
		refPrice[i] = refPrice[i-1] * (1 + r)
		instPrice[i] = instPrice[i-1] * (1 + factor*r)
	}
	ref = gen5m(start, n, func(i int) float64 { return refPrice[i] })
	inst = gen5m(start, n, func(i int) float64 { return instPrice[i] })
	return ref, inst
}

func newBeta(t *testing.T, p *fakeProvider) *BetaUseCase {
	t.Helper()
	return NewBetaUseCase(newHistory(t, p), p, nil, nil,
		BetaConfig{ReferenceSymbols: []string{"BTC", "ETH"}}, nil)
}

func TestCalculateBetaLeveragedSeries(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	ref, inst := leveragedFixture(start.Add(-time.Hour), 400, 2)

	p := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": inst}}
	b := newBeta(t, p)

	got, err := b.CalculateBeta(context.Background(), "SOL", "BTC", start, end, models.SessionNone)
	if err != nil {
		t.Fatalf("beta: %v", err)
	}
	if math.Abs(got-2) > 1e-6 {
		t.Fatalf("expected beta 2, got %v", got)
	}
}

func TestCalculateBetaScaleInvariant(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	ref, inst := leveragedFixture(start.Add(-time.Hour), 400, 1.5)

	scaled := make([]models.Candle, len(inst))
	for i, c := range inst {
		c.Close *= 1000
		scaled[i] = c
	}

	p1 := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": inst}}
	p2 := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": scaled}}

	b1, err := newBeta(t, p1).CalculateBeta(context.Background(), "SOL", "BTC", start, end, models.SessionNone)
	if err != nil {
		t.Fatalf("beta: %v", err)
	}
	b2, err := newBeta(t, p2).CalculateBeta(context.Background(), "SOL", "BTC", start, end, models.SessionNone)
	if err != nil {
		t.Fatalf("beta scaled: %v", err)
	}
	if math.Abs(b1-b2) > 1e-9 {
		t.Fatalf("beta not scale invariant: %v vs %v", b1, b2)
	}
}

func TestCalculateBetaZeroVariance(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)

	p := &fakeProvider{candles: map[string][]models.Candle{
		"BTC": gen5m(start.Add(-time.Hour), 200, func(i int) float64 { return 100 }),
		"SOL": gen5m(start.Add(-time.Hour), 200, func(i int) float64 { return 40 + float64(i%3) }),
	}}
	b := newBeta(t, p)

	_, err := b.CalculateBeta(context.Background(), "SOL", "BTC", start, end, models.SessionNone)
	if !errors.Is(err, models.ErrZeroVariance) {
		t.Fatalf("expected ErrZeroVariance, got %v", err)
	}
}

func TestCalculateBetaInsufficientData(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)

	// Two aligned points yield a single return.
	p := &fakeProvider{candles: map[string][]models.Candle{
		"BTC": gen5m(start, 2, func(i int) float64 { return 100 + float64(i) }),
		"SOL": gen5m(start, 2, func(i int) float64 { return 40 + float64(i) }),
	}}
	b := newBeta(t, p)

	_, err := b.CalculateBeta(context.Background(), "SOL", "BTC", start, end, models.SessionNone)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCalculateAllBetas(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	ref, sol := leveragedFixture(start.Add(-time.Hour), 400, 2)
	_, doge := leveragedFixture(start.Add(-time.Hour), 400, 0.4)
	eth := gen5m(start.Add(-time.Hour), 400, func(i int) float64 { return 2000 + float64(i) })

	p := &fakeProvider{
		metas: []models.InstrumentMeta{
			{Symbol: "BTC", IsActivePerp: true},
			{Symbol: "ETH", IsActivePerp: true},
			{Symbol: "SOL", IsActivePerp: true},
			{Symbol: "DOGE", IsActivePerp: true},
			{Symbol: "OLD", IsActivePerp: false},
		},
		candles: map[string][]models.Candle{"BTC": ref, "ETH": eth, "SOL": sol, "DOGE": doge},
		last:    map[string]float64{"BTC": 1, "ETH": 1, "SOL": 1, "DOGE": 1},
	}
	b := newBeta(t, p)

	var lastDone, lastTotal int
	t1, t2, err := b.CalculateAllBetas(context.Background(), start, end, models.SessionNone, func(done, total int) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("all betas: %v", err)
	}

	if lastTotal != 2 || lastDone != 2 {
		t.Fatalf("expected progress 2/2 over the non-reference universe, got %d/%d", lastDone, lastTotal)
	}

	if len(t1) != 3 {
		t.Fatalf("expected 3 rows in ref1 table, got %d", len(t1))
	}
	for i := 1; i < len(t1); i++ {
		if t1[i].Beta > t1[i-1].Beta {
			t.Fatalf("ref1 table not sorted descending")
		}
	}

	byName := map[string]models.BetaRow{}
	for _, r := range t1 {
		byName[r.Instrument] = r
	}
	if r := byName["BTC"]; r.Beta != 1.0 {
		t.Fatalf("reference row must carry beta 1.0, got %v", r.Beta)
	}
	if r := byName["SOL"]; math.Abs(r.Beta-2) > 1e-6 || r.Risk != models.RiskHigh {
		t.Fatalf("unexpected SOL row: beta=%v risk=%v", r.Beta, r.Risk)
	}
	if r := byName["DOGE"]; math.Abs(r.Beta-0.4) > 1e-6 || r.Risk != models.RiskLow {
		t.Fatalf("unexpected DOGE row: beta=%v risk=%v", r.Beta, r.Risk)
	}
	if _, ok := byName["OLD"]; ok {
		t.Fatalf("inactive instrument must be excluded")
	}

	for _, r := range t2 {
		if r.Risk != "" {
			t.Fatalf("ref2 table must not carry risk levels, got %v for %s", r.Risk, r.Instrument)
		}
	}
}

func TestCalculateAllBetasMissingReferences(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	// Instrument data exists, reference data does not: every beta is
	// undefined, so the whole computation must report the absent outcome
	// instead of tables holding only the definitional reference rows.
	_, sol := leveragedFixture(start.Add(-time.Hour), 400, 2)
	p := &fakeProvider{
		metas: []models.InstrumentMeta{
			{Symbol: "BTC", IsActivePerp: true},
			{Symbol: "ETH", IsActivePerp: true},
			{Symbol: "SOL", IsActivePerp: true},
		},
		candles: map[string][]models.Candle{"SOL": sol},
		last:    map[string]float64{"SOL": 1},
	}
	b := newBeta(t, p)

	t1, t2, err := b.CalculateAllBetas(context.Background(), start, end, models.SessionNone, nil)
	if !errors.Is(err, models.ErrNoData) {
		t.Fatalf("expected ErrNoData for missing reference series, got %v", err)
	}
	if t1 != nil || t2 != nil {
		t.Fatalf("expected no tables, got %d/%d rows", len(t1), len(t2))
	}
}

func TestSampleStatistics(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}

	if v := sampleVariance(xs); math.Abs(v-2.5) > 1e-12 {
		t.Fatalf("expected variance 2.5, got %v", v)
	}
	if c := sampleCovariance(xs, ys); math.Abs(c-5) > 1e-12 {
		t.Fatalf("expected covariance 5, got %v", c)
	}
	if v := sampleVariance([]float64{7}); v != 0 {
		t.Fatalf("expected zero variance for a single sample, got %v", v)
	}
}
