package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
)

func newPatterns(t *testing.T, p *fakeProvider) *PatternUseCase {
	t.Helper()
	return NewPatternUseCase(newHistory(t, p), nil, "BTC", nil)
}

func TestWindowFor(t *testing.T) {
	cases := []struct {
		period time.Duration
		want   time.Duration
		label  string
	}{
		{12 * time.Hour, time.Hour, "1h"},
		{24 * time.Hour, time.Hour, "1h"},
		{3 * 24 * time.Hour, 4 * time.Hour, "4h"},
		{7 * 24 * time.Hour, 4 * time.Hour, "4h"},
		{30 * 24 * time.Hour, 24 * time.Hour, "1d"},
	}
	for _, c := range cases {
		got, label := windowFor(c.period)
		if got != c.want || label != c.label {
			t.Fatalf("windowFor(%v) = (%v, %s), want (%v, %s)", c.period, got, label, c.want, c.label)
		}
	}
}

func TestAnalyzeBetaPatternsLeveragedSeries(t *testing.T) {
	// Two full weeks of 5m data starting on a Monday: every (day, hour)
	// slot collects well above the sample minimum.
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)
	n := int(end.Sub(start)/(5*time.Minute)) + 30
	ref, inst := leveragedFixture(start.Add(-time.Hour), n, 2)

	p := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": inst}}
	u := newPatterns(t, p)
	u.now = func() time.Time { return time.Date(2024, 3, 20, 15, 45, 0, 0, time.UTC) } // a Wednesday

	res, err := u.AnalyzeBetaPatterns(context.Background(), "SOL", start, end, models.SessionNone)
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}

	if res.WindowSize != "1d" {
		t.Fatalf("expected 1d window for a 14-day period, got %s", res.WindowSize)
	}
	if len(res.HighestBeta) != patternTopN {
		t.Fatalf("expected %d top rows out of 168 buckets, got %d", patternTopN, len(res.HighestBeta))
	}
	if len(res.LowestBeta) != patternTopN {
		t.Fatalf("expected %d bottom rows, got %d", patternTopN, len(res.LowestBeta))
	}
	for i, row := range res.HighestBeta {
		if row.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, row.Rank)
		}
		if row.Samples < minBucketSamples {
			t.Fatalf("bucket below sample minimum: %+v", row)
		}
		if math.Abs(row.Beta-2) > 1e-6 {
			t.Fatalf("expected bucket beta 2, got %v", row.Beta)
		}
	}
	if res.HighestBeta[0].Beta < res.LowestBeta[len(res.LowestBeta)-1].Beta {
		t.Fatalf("top rank must not be below bottom rank")
	}

	if res.Current.Day != "Wednesday" || res.Current.Time != "15:00-16:00" {
		t.Fatalf("unexpected current window %+v", res.Current)
	}
	if res.Current.Beta == nil {
		t.Fatalf("expected current window beta for a fully populated week grid")
	}

	if len(res.Series) == 0 {
		t.Fatalf("expected a rolling beta series")
	}
	for _, pt := range res.Series {
		if math.IsNaN(pt.Beta) {
			t.Fatalf("series must not contain NaN")
		}
	}
	for h, b := range res.HourlyBeta {
		if h < 0 || h > 23 {
			t.Fatalf("invalid hour bucket %d", h)
		}
		if math.Abs(b-2) > 1e-3 {
			t.Fatalf("expected hourly beta near 2, got %v at hour %d", b, h)
		}
	}
	if len(res.DailyBeta) != 7 {
		t.Fatalf("expected 7 daily aggregates, got %d", len(res.DailyBeta))
	}
}

func TestAnalyzeBetaPatternsCurrentWindowBelowMinimum(t *testing.T) {
	// Data runs Monday 00:00 through Wednesday 00:15, so the Wednesday
	// 00:00 slot collects only four returns: below the bucket minimum but
	// still countable.
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.Add(48*time.Hour + 15*time.Minute)
	n := int(end.Sub(start.Add(-time.Hour))/(5*time.Minute)) + 1
	ref, inst := leveragedFixture(start.Add(-time.Hour), n, 2)

	p := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": inst}}
	u := newPatterns(t, p)
	u.now = func() time.Time { return time.Date(2024, 3, 6, 0, 30, 0, 0, time.UTC) } // Wednesday 00:30

	res, err := u.AnalyzeBetaPatterns(context.Background(), "SOL", start, end, models.SessionNone)
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}

	if res.Current.Day != "Wednesday" || res.Current.Time != "00:00-01:00" {
		t.Fatalf("unexpected current window %+v", res.Current)
	}
	if res.Current.Beta != nil {
		t.Fatalf("slot below the sample minimum must not report a beta, got %v", *res.Current.Beta)
	}
	if res.Current.Samples != 4 {
		t.Fatalf("expected the raw sample count 4 for the partial slot, got %d", res.Current.Samples)
	}
}

func TestAnalyzeBetaPatternsInsufficientData(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)
	ref, inst := leveragedFixture(start, 4, 2)

	p := &fakeProvider{candles: map[string][]models.Candle{"BTC": ref, "SOL": inst}}
	u := newPatterns(t, p)

	_, err := u.AnalyzeBetaPatterns(context.Background(), "SOL", start, end, models.SessionNone)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestForwardFill(t *testing.T) {
	nan := math.NaN()
	xs := []float64{nan, nan, 1, nan, 2, nan}
	forwardFill(xs)

	if !math.IsNaN(xs[0]) || !math.IsNaN(xs[1]) {
		t.Fatalf("leading NaNs must stay NaN")
	}
	if xs[3] != 1 {
		t.Fatalf("expected fill with 1, got %v", xs[3])
	}
	if xs[5] != 2 {
		t.Fatalf("expected fill with 2, got %v", xs[5])
	}
}

func TestClipOutliers(t *testing.T) {
	xs := make([]float64, 101)
	for i := range xs {
		xs[i] = 1
	}
	xs[100] = 100
	clipOutliers(xs, 3)

	for i := 0; i < 100; i++ {
		if xs[i] != 1 {
			t.Fatalf("in-band value must be untouched, got %v at %d", xs[i], i)
		}
	}
	if xs[100] == 100 {
		t.Fatalf("expected outlier to be clipped")
	}
	if xs[100] <= 1 {
		t.Fatalf("clip must clamp toward the mean, got %v", xs[100])
	}
}

func TestRankBucketsSmallSet(t *testing.T) {
	buckets := []models.PatternBucket{
		{Day: 0, Hour: 1, Beta: 0.5, Samples: 6},
		{Day: 1, Hour: 2, Beta: 1.5, Samples: 6},
		{Day: 2, Hour: 3, Beta: 1.0, Samples: 6},
	}
	highest, lowest := rankBuckets(buckets)

	if len(highest) != 3 || len(lowest) != 3 {
		t.Fatalf("small sets must be returned whole, got %d/%d", len(highest), len(lowest))
	}
	if highest[0].Beta != 1.5 || highest[2].Beta != 0.5 {
		t.Fatalf("expected descending order, got %+v", highest)
	}
	if lowest[0].Rank != 1 {
		t.Fatalf("bottom list must be re-ranked from 1, got %d", lowest[0].Rank)
	}
}
