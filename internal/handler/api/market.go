package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/usecase"
	xhttp "github.com/danielhafezi/BetaAnalysisTool/pkg/http"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketHandler exposes the analysis operations over HTTP.
type MarketHandler struct {
	provider drepo.MarketDataProvider
	history  *usecase.HistoryUseCase
	beta     *usecase.BetaUseCase
	patterns *usecase.PatternUseCase
	refs     []string
	l        *applogger.Logger
}

func NewMarketHandler(provider drepo.MarketDataProvider, history *usecase.HistoryUseCase, beta *usecase.BetaUseCase, patterns *usecase.PatternUseCase, refs []string, l *applogger.Logger) *MarketHandler {
	return &MarketHandler{
		provider: provider,
		history:  history,
		beta:     beta,
		patterns: patterns,
		refs:     refs,
		l:        l,
	}
}

// RegisterRoutes registers API routes.
func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/instruments", h.GetInstruments)
	g.GET("/betas", h.GetBetas)
	g.GET("/patterns", h.GetPatterns)
	g.GET("/prices", h.GetPrices)
	g.GET("/changes", h.GetChanges)
}

// GetInstruments returns the active perpetual universe.
func (h *MarketHandler) GetInstruments(c echo.Context) error {
	metas, err := h.provider.LoadInstruments(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}

	out := make([]string, 0, len(metas))
	for _, m := range metas {
		if m.IsActivePerp {
			out = append(out, m.Symbol)
		}
	}
	return xhttp.SuccessResponse(c, out)
}

// GetBetas computes both reference beta tables over a time window.
func (h *MarketHandler) GetBetas(c echo.Context) error {
	req := new(models.BetasRequest)
	if vErr := xhttp.ReadAndValidateRequest(c, req); vErr != nil {
		return xhttp.BadRequestResponse(c, vErr)
	}

	from, to, session, appErr := h.parseWindow(req.From, req.To, req.Session)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	t1, t2, err := h.beta.CalculateAllBetas(c.Request().Context(), from, to, session, nil)
	if err != nil {
		return h.respondError(c, err)
	}
	return xhttp.SuccessResponse(c, &models.BetasResponse{
		Ref1:      h.refs[0],
		Ref2:      h.refs[1],
		Ref1Table: t1,
		Ref2Table: t2,
	})
}

// GetPatterns analyzes one instrument's beta patterns over a window.
func (h *MarketHandler) GetPatterns(c echo.Context) error {
	req := new(models.PatternsRequest)
	if vErr := xhttp.ReadAndValidateRequest(c, req); vErr != nil {
		return xhttp.BadRequestResponse(c, vErr)
	}

	from, to, session, appErr := h.parseWindow(req.From, req.To, req.Session)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	result, err := h.patterns.AnalyzeBetaPatterns(c.Request().Context(), req.Instrument, from, to, session)
	if err != nil {
		return h.respondError(c, err)
	}
	return xhttp.SuccessResponse(c, result)
}

// GetPrices returns the assembled close-price series for one instrument.
func (h *MarketHandler) GetPrices(c echo.Context) error {
	req := new(models.PricesRequest)
	if vErr := xhttp.ReadAndValidateRequest(c, req); vErr != nil {
		return xhttp.BadRequestResponse(c, vErr)
	}

	from, to, session, appErr := h.parseWindow(req.From, req.To, req.Session)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	series, err := h.history.GetHistoricalPrices(c.Request().Context(), req.Instrument, from, to, session)
	if err != nil {
		return h.respondError(c, err)
	}
	return xhttp.SuccessResponse(c, series)
}

// GetChanges returns price changes for a set of instruments, defaulting to
// the whole active universe.
func (h *MarketHandler) GetChanges(c echo.Context) error {
	req := new(models.ChangesRequest)
	if vErr := xhttp.ReadAndValidateRequest(c, req); vErr != nil {
		return xhttp.BadRequestResponse(c, vErr)
	}

	from, to, session, appErr := h.parseWindow(req.From, req.To, req.Session)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	instruments, err := h.resolveInstruments(c, req.Instruments)
	if err != nil {
		return h.respondError(c, err)
	}

	changes, err := h.history.GetPriceChangesBatch(c.Request().Context(), instruments, from, to, session)
	if err != nil {
		return h.respondError(c, err)
	}
	return xhttp.SuccessResponse(c, changes)
}

func (h *MarketHandler) resolveInstruments(c echo.Context, csv string) ([]string, error) {
	if csv != "" {
		parts := strings.Split(csv, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}

	metas, err := h.provider.LoadInstruments(c.Request().Context())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		if m.IsActivePerp {
			out = append(out, m.Symbol)
		}
	}
	return out, nil
}

func (h *MarketHandler) parseWindow(fromRaw, toRaw, sessionRaw string) (time.Time, time.Time, models.Session, *xhttp.AppError) {
	from, ok := util.ParseTime(fromRaw)
	if !ok {
		return time.Time{}, time.Time{}, models.SessionNone, xhttp.BadRequestErrorf("invalid from time %q", fromRaw)
	}
	to, ok := util.ParseTime(toRaw)
	if !ok {
		return time.Time{}, time.Time{}, models.SessionNone, xhttp.BadRequestErrorf("invalid to time %q", toRaw)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, models.SessionNone, xhttp.BadRequestError("from must be before to")
	}

	session, err := models.ParseSession(sessionRaw)
	if err != nil {
		return time.Time{}, time.Time{}, models.SessionNone, xhttp.BadRequestError(err.Error())
	}
	return from.UTC(), to.UTC(), session, nil
}

func (h *MarketHandler) respondError(c echo.Context, err error) error {
	if h.l != nil {
		h.l.Error("request failed", applogger.String("path", c.Path()), applogger.Error(err))
	}
	switch {
	case errors.Is(err, models.ErrNoData):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no price data for the requested window"))
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("not enough data points for the requested window"))
	case errors.Is(err, models.ErrZeroVariance):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("reference series has zero variance over the window"))
	case errors.Is(err, models.ErrProviderUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UPSTREAM", "", "market data provider unavailable", http.StatusBadGateway).WithError(err))
	default:
		return xhttp.InternalServerErrorResponse(c)
	}
}
