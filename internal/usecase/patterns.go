package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
)

const (
	minBucketSamples = 5
	patternTopN      = 50
)

// PatternUseCase studies how an instrument's beta against the primary
// reference behaves across time: a rolling beta series plus fixed
// (weekday, hour) buckets ranked by average beta.
type PatternUseCase struct {
	history   *HistoryUseCase
	publisher drepo.ResultPublisher
	reference string
	l         *applogger.Logger
	now       func() time.Time
}

func NewPatternUseCase(history *HistoryUseCase, publisher drepo.ResultPublisher, reference string, l *applogger.Logger) *PatternUseCase {
	return &PatternUseCase{
		history:   history,
		publisher: publisher,
		reference: reference,
		l:         l,
		now:       time.Now,
	}
}

// windowFor picks the rolling window from the analyzed period's length.
func windowFor(period time.Duration) (time.Duration, string) {
	switch {
	case period <= 24*time.Hour:
		return time.Hour, "1h"
	case period <= 7*24*time.Hour:
		return 4 * time.Hour, "4h"
	default:
		return 24 * time.Hour, "1d"
	}
}

// AnalyzeBetaPatterns runs both pattern paths over [start, end]. The
// rolling path produces the beta time series and its hourly and daily
// averages; the bucket path ranks (weekday, hour) slots that have at
// least minBucketSamples observations. The two paths use different
// return treatments and are reported side by side, not reconciled.
func (u *PatternUseCase) AnalyzeBetaPatterns(ctx context.Context, instrument string, start, end time.Time, session models.Session) (*models.PatternResult, error) {
	instSeries, err := u.history.GetHistoricalPrices(ctx, instrument, start, end, session)
	if err != nil {
		return nil, err
	}
	refSeries, err := u.history.GetHistoricalPrices(ctx, u.reference, start, end, session)
	if err != nil {
		return nil, err
	}

	alignedInst, alignedRef := models.AlignSeries(instSeries, refSeries)
	if len(alignedInst) < 2 {
		return nil, fmt.Errorf("patterns %s: %w", instrument, models.ErrInsufficientData)
	}

	windowDur, windowLabel := windowFor(end.Sub(start))

	series, hourly, daily := u.rollingPath(alignedInst, alignedRef, windowDur)
	buckets, slotCounts := bucketPath(alignedInst, alignedRef)
	if len(buckets) == 0 {
		return nil, fmt.Errorf("patterns %s: no bucket reached %d samples: %w",
			instrument, minBucketSamples, models.ErrInsufficientData)
	}

	highest, lowest := rankBuckets(buckets)

	result := &models.PatternResult{
		Instrument:  instrument,
		WindowSize:  windowLabel,
		Current:     u.currentWindow(buckets, slotCounts),
		HighestBeta: highest,
		LowestBeta:  lowest,
		Series:      series,
		HourlyBeta:  hourly,
		DailyBeta:   daily,
	}

	if u.publisher != nil {
		if err := u.publisher.PublishPatterns(ctx, result); err != nil && u.l != nil {
			u.l.Warn("patterns publish failed", applogger.Error(err))
		}
	}
	return result, nil
}

// rollingPath computes the trailing-window rolling beta on zero-filled
// returns, forward-fills undefined windows, clips outliers at three
// standard deviations and aggregates hourly and daily means.
func (u *PatternUseCase) rollingPath(inst, ref models.PriceSeries, window time.Duration) ([]models.BetaPoint, map[int]float64, map[string]float64) {
	instR := zeroFilledReturns(inst)
	refR := zeroFilledReturns(ref)

	n := len(instR)
	betas := make([]float64, n)
	lo := 0
	for i := 0; i < n; i++ {
		cutoff := inst[i].Timestamp.Add(-window)
		for lo < i && !inst[lo].Timestamp.After(cutoff) {
			lo++
		}
		betas[i] = windowBeta(instR[lo:i+1], refR[lo:i+1])
	}

	forwardFill(betas)
	clipOutliers(betas, 3)

	series := make([]models.BetaPoint, 0, n)
	hourSum := make(map[int]float64)
	hourCnt := make(map[int]int)
	daySum := make(map[string]float64)
	dayCnt := make(map[string]int)
	for i, b := range betas {
		if math.IsNaN(b) {
			continue
		}
		ts := inst[i].Timestamp
		series = append(series, models.BetaPoint{Timestamp: ts, Beta: b})
		hourSum[ts.Hour()] += b
		hourCnt[ts.Hour()]++
		day := models.DayName(models.MondayIndex(ts.Weekday()))
		daySum[day] += b
		dayCnt[day]++
	}

	hourly := make(map[int]float64, len(hourSum))
	for h, sum := range hourSum {
		hourly[h] = sum / float64(hourCnt[h])
	}
	daily := make(map[string]float64, len(daySum))
	for d, sum := range daySum {
		daily[d] = sum / float64(dayCnt[d])
	}
	return series, hourly, daily
}

// zeroFilledReturns mirrors the series length: the first element is zero,
// element i is the return from point i-1 to i.
func zeroFilledReturns(s models.PriceSeries) []float64 {
	out := make([]float64, len(s))
	for i := 1; i < len(s); i++ {
		if s[i-1].Price != 0 {
			out[i] = s[i].Price/s[i-1].Price - 1
		}
	}
	return out
}

// windowBeta is cov/var over one rolling window; NaN when undefined.
func windowBeta(instR, refR []float64) float64 {
	if len(instR) < 2 {
		return math.NaN()
	}
	v := sampleVariance(refR)
	if v == 0 {
		return math.NaN()
	}
	return sampleCovariance(instR, refR) / v
}

// forwardFill replaces each NaN with the last preceding valid value;
// leading NaNs stay NaN.
func forwardFill(xs []float64) {
	last := math.NaN()
	for i, x := range xs {
		if math.IsNaN(x) {
			xs[i] = last
			continue
		}
		last = x
	}
}

// clipOutliers clamps values to mean +- k standard deviations of the
// valid entries.
func clipOutliers(xs []float64, k float64) {
	var valid []float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	if len(valid) < 2 {
		return
	}
	m := mean(valid)
	sd := math.Sqrt(sampleVariance(valid))
	lo, hi := m-k*sd, m+k*sd
	for i, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if x < lo {
			xs[i] = lo
		} else if x > hi {
			xs[i] = hi
		}
	}
}

// bucketPath groups plain returns into (weekday, hour) slots and keeps
// slots with enough samples. Bucket beta is cov/var within the slot. The
// second result counts raw observations per slot, qualified or not.
func bucketPath(inst, ref models.PriceSeries) ([]models.PatternBucket, map[[2]int]int) {
	instPts := inst.Returns()
	refPts := ref.Returns()

	type slot struct {
		inst, ref []float64
	}
	slots := make(map[[2]int]*slot)
	for i := range instPts {
		ts := instPts[i].Timestamp
		key := [2]int{models.MondayIndex(ts.Weekday()), ts.Hour()}
		s, ok := slots[key]
		if !ok {
			s = &slot{}
			slots[key] = s
		}
		s.inst = append(s.inst, instPts[i].Return)
		s.ref = append(s.ref, refPts[i].Return)
	}

	counts := make(map[[2]int]int, len(slots))
	var out []models.PatternBucket
	for key, s := range slots {
		counts[key] = len(s.inst)
		if len(s.inst) < minBucketSamples {
			continue
		}
		v := sampleVariance(s.ref)
		if v == 0 {
			continue
		}
		out = append(out, models.PatternBucket{
			Day:     key[0],
			Hour:    key[1],
			Beta:    sampleCovariance(s.inst, s.ref) / v,
			Samples: len(s.inst),
		})
	}
	return out, counts
}

// rankBuckets sorts buckets descending by beta and returns the top slice
// and the tail slice, both ranked 1..n in the order shown.
func rankBuckets(buckets []models.PatternBucket) (highest, lowest []models.PatternRow) {
	sorted := make([]models.PatternBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Beta > sorted[j].Beta })

	top := sorted
	if len(top) > patternTopN {
		top = sorted[:patternTopN]
	}
	bottom := sorted
	if len(bottom) > patternTopN {
		bottom = sorted[len(sorted)-patternTopN:]
	}

	toRows := func(bs []models.PatternBucket) []models.PatternRow {
		rows := make([]models.PatternRow, 0, len(bs))
		for i, b := range bs {
			rows = append(rows, models.PatternRow{
				Rank:    i + 1,
				Day:     models.DayName(b.Day),
				Time:    models.HourLabel(b.Hour),
				Beta:    b.Beta,
				Samples: b.Samples,
			})
		}
		return rows
	}
	return toRows(top), toRows(bottom)
}

// currentWindow reports the bucket matching the evaluation time's UTC
// weekday and hour. Beta stays nil when that slot never qualified, but
// the raw sample count is reported either way.
func (u *PatternUseCase) currentWindow(buckets []models.PatternBucket, counts map[[2]int]int) models.CurrentWindow {
	now := u.now().UTC()
	day := models.MondayIndex(now.Weekday())
	hour := now.Hour()

	cw := models.CurrentWindow{
		Day:     models.DayName(day),
		Time:    models.HourLabel(hour),
		Samples: counts[[2]int{day, hour}],
	}
	for _, b := range buckets {
		if b.Day == day && b.Hour == hour {
			beta := b.Beta
			cw.Beta = &beta
			break
		}
	}
	return cw
}
