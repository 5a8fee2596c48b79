package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/queue"
)

// BetaConfig tunes the beta engine.
type BetaConfig struct {
	ReferenceSymbols []string
	Workers          int
}

// ProgressFunc reports batch completion, done out of total instruments.
type ProgressFunc func(done, total int)

// BetaUseCase computes instrument betas against two reference assets over
// the assembled price history.
type BetaUseCase struct {
	history   *HistoryUseCase
	provider  drepo.MarketDataProvider
	publisher drepo.ResultPublisher
	metrics   drepo.Metrics
	cfg       BetaConfig
	l         *applogger.Logger
}

func NewBetaUseCase(history *HistoryUseCase, provider drepo.MarketDataProvider, publisher drepo.ResultPublisher, metrics drepo.Metrics, cfg BetaConfig, l *applogger.Logger) *BetaUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	return &BetaUseCase{
		history:   history,
		provider:  provider,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		l:         l,
	}
}

// CalculateBeta computes beta of instrument against reference over
// [start, end]: the covariance of their percentage returns divided by the
// variance of the reference's returns, on timestamps both series share.
func (u *BetaUseCase) CalculateBeta(ctx context.Context, instrument, reference string, start, end time.Time, session models.Session) (float64, error) {
	instSeries, err := u.history.GetHistoricalPrices(ctx, instrument, start, end, session)
	if err != nil {
		return 0, err
	}
	refSeries, err := u.history.GetHistoricalPrices(ctx, reference, start, end, session)
	if err != nil {
		return 0, err
	}

	alignedInst, alignedRef := models.AlignSeries(instSeries, refSeries)
	instReturns := returnsOf(alignedInst)
	refReturns := returnsOf(alignedRef)
	if len(instReturns) < 2 {
		return 0, fmt.Errorf("beta %s/%s: %w", instrument, reference, models.ErrInsufficientData)
	}

	refVar := sampleVariance(refReturns)
	if refVar == 0 {
		return 0, fmt.Errorf("beta %s/%s: %w", instrument, reference, models.ErrZeroVariance)
	}
	return sampleCovariance(instReturns, refReturns) / refVar, nil
}

// CalculateAllBetas computes both reference tables across the active
// perpetual universe. Instruments whose beta is undefined are omitted;
// reference assets themselves get beta 1.0 by definition. Without usable
// reference series every beta is undefined, so that case is the absent
// outcome rather than tables holding only the definitional rows.
func (u *BetaUseCase) CalculateAllBetas(ctx context.Context, start, end time.Time, session models.Session, progress ProgressFunc) (models.BetaTable, models.BetaTable, error) {
	if len(u.cfg.ReferenceSymbols) != 2 {
		return nil, nil, fmt.Errorf("need exactly 2 reference symbols, have %d", len(u.cfg.ReferenceSymbols))
	}
	ref1, ref2 := u.cfg.ReferenceSymbols[0], u.cfg.ReferenceSymbols[1]

	// Warm and check both reference series before touching the universe.
	for _, ref := range []string{ref1, ref2} {
		series, err := u.history.GetHistoricalPrices(ctx, ref, start, end, session)
		if err != nil {
			return nil, nil, fmt.Errorf("reference %s: %w", ref, err)
		}
		if len(series) < 2 {
			return nil, nil, fmt.Errorf("reference %s has %d points: %w", ref, len(series), models.ErrNoData)
		}
	}

	universe, err := u.universe(ctx, ref1, ref2)
	if err != nil {
		return nil, nil, err
	}

	changes, err := u.history.GetPriceChangesBatch(ctx, append([]string{ref1, ref2}, universe...), start, end, session)
	if err != nil {
		return nil, nil, err
	}

	type pair struct {
		beta1, beta2 float64
		ok1, ok2     bool
	}
	results := make([]pair, len(universe))
	idx := make(map[string]int, len(universe))
	for i, ins := range universe {
		idx[ins] = i
	}

	total := len(universe)
	var done int
	report := func() {
		done++
		if progress != nil {
			progress(done, total)
		}
		if u.metrics != nil {
			u.metrics.RecordBatchProgress(done, total)
		}
	}

	queue.Run(ctx, u.cfg.Workers, universe, func(ctx context.Context, instrument string) {
		var p pair
		if b, err := u.CalculateBeta(ctx, instrument, ref1, start, end, session); err == nil {
			p.beta1, p.ok1 = b, true
		} else if u.l != nil {
			u.l.Debug("beta skipped", applogger.String("instrument", instrument), applogger.String("reference", ref1), applogger.Error(err))
		}
		if b, err := u.CalculateBeta(ctx, instrument, ref2, start, end, session); err == nil {
			p.beta2, p.ok2 = b, true
		}
		results[idx[instrument]] = p
		report()
	})

	table1 := models.BetaTable{referenceRow(ref1, changes)}
	table2 := models.BetaTable{referenceRow(ref2, changes)}
	for i, ins := range universe {
		if results[i].ok1 {
			table1 = append(table1, betaRow(ins, results[i].beta1, changes))
		}
		if results[i].ok2 {
			table2 = append(table2, betaRow(ins, results[i].beta2, changes))
		}
	}

	sortByBetaDesc(table1)
	sortByBetaDesc(table2)
	for i := range table1 {
		table1[i].Risk = models.RiskLevelFor(table1[i].Beta)
	}

	if u.publisher != nil {
		if err := u.publisher.PublishBetaTables(ctx, start, end, table1, table2); err != nil && u.l != nil {
			u.l.Warn("beta tables publish failed", applogger.Error(err))
		}
	}
	if u.l != nil {
		u.l.Info("computed beta tables",
			applogger.Int("universe", total),
			applogger.Int("ref1_rows", len(table1)),
			applogger.Int("ref2_rows", len(table2)))
	}
	return table1, table2, nil
}

// universe lists active perpetuals excluding the reference assets.
func (u *BetaUseCase) universe(ctx context.Context, refs ...string) ([]string, error) {
	metas, err := u.provider.LoadInstruments(ctx)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		skip[r] = struct{}{}
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		if !m.IsActivePerp {
			continue
		}
		if _, ok := skip[m.Symbol]; ok {
			continue
		}
		out = append(out, m.Symbol)
	}
	return out, nil
}

func referenceRow(symbol string, changes map[string]models.PriceChange) models.BetaRow {
	return betaRow(symbol, 1.0, changes)
}

func betaRow(symbol string, beta float64, changes map[string]models.PriceChange) models.BetaRow {
	row := models.BetaRow{Instrument: symbol, Beta: beta}
	if c, ok := changes[symbol]; ok {
		change, price := c.ChangePct, c.CurrentPrice
		row.PriceChange = &change
		row.CurrentPrice = &price
	}
	return row
}

func sortByBetaDesc(t models.BetaTable) {
	sort.SliceStable(t, func(i, j int) bool { return t[i].Beta > t[j].Beta })
}

func returnsOf(s models.PriceSeries) []float64 {
	pts := s.Returns()
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Return
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleVariance uses the n-1 denominator.
func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

// sampleCovariance uses the n-1 denominator; inputs must be equal length.
func sampleCovariance(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}
