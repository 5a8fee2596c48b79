package hyperliquid

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/ratelimit"
	xhttp "github.com/danielhafezi/BetaAnalysisTool/pkg/http"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
)

// timeframeMinutes maps supported candle intervals to their length.
var timeframeMinutes = map[string]int{
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"12h": 720,
	"1d":  1440,
}

// Client implements MarketDataProvider against the Hyperliquid public
// info endpoint. All market data requests are POSTs to a single URL with
// a typed JSON body.
type Client struct {
	baseURL string
	settle  string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	rate    float64
	stream  *Stream
	metrics drepo.Metrics
	l       *applogger.Logger
}

// New creates a Hyperliquid market data client. stream may be nil; when
// set, FetchLastPrice prefers the live mid over a REST round-trip.
func New(baseURL, settleCurrency string, timeout time.Duration, rate float64, stream *Stream, metrics drepo.Metrics, l *applogger.Logger) *Client {
	if rate <= 0 {
		rate = 20
	}
	return &Client{
		baseURL: baseURL,
		settle:  settleCurrency,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		rate:    rate,
		stream:  stream,
		metrics: metrics,
		l:       l,
	}
}

type metaRequest struct {
	Type string `json:"type"`
}

type candleSnapshotRequest struct {
	Type string        `json:"type"`
	Req  candleSubSpec `json:"req"`
}

type candleSubSpec struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

type metaResponse struct {
	Universe []struct {
		Name       string `json:"name"`
		IsDelisted bool   `json:"isDelisted"`
	} `json:"universe"`
}

type rawCandle struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
}

// LoadInstruments returns the perpetual universe. Hyperliquid perps all
// settle in USDC; delisted entries are flagged inactive.
func (c *Client) LoadInstruments(ctx context.Context) ([]models.InstrumentMeta, error) {
	var resp metaResponse
	if err := c.post(ctx, "instruments", metaRequest{Type: "meta"}, &resp); err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	out := make([]models.InstrumentMeta, 0, len(resp.Universe))
	for _, u := range resp.Universe {
		out = append(out, models.InstrumentMeta{
			Symbol:         u.Name,
			IsActivePerp:   !u.IsDelisted,
			SettleCurrency: c.settle,
		})
	}
	if c.l != nil {
		c.l.Info("loaded instrument universe", applogger.Int("count", len(out)))
	}
	return out, nil
}

// FetchCandles returns up to limit candles of the given timeframe starting
// at since. The endpoint takes an explicit end time, derived here from the
// requested limit.
func (c *Client) FetchCandles(ctx context.Context, instrument, timeframe string, since time.Time, limit int) ([]models.Candle, error) {
	minutes, ok := timeframeMinutes[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	if limit <= 0 || limit > 2000 {
		limit = 2000
	}
	end := since.Add(time.Duration(limit*minutes) * time.Minute)

	var raw []rawCandle
	req := candleSnapshotRequest{
		Type: "candleSnapshot",
		Req: candleSubSpec{
			Coin:      instrument,
			Interval:  timeframe,
			StartTime: since.UnixMilli(),
			EndTime:   end.UnixMilli(),
		},
	}
	if err := c.post(ctx, "candles", req, &raw); err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", instrument, err)
	}

	out := make([]models.Candle, 0, len(raw))
	for _, r := range raw {
		candle, err := r.parse()
		if err != nil {
			return nil, fmt.Errorf("parse candle %s: %w", instrument, err)
		}
		out = append(out, candle)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// FetchLastPrice returns the current mid price, from the live stream when
// available, otherwise via an allMids snapshot.
func (c *Client) FetchLastPrice(ctx context.Context, instrument string) (float64, error) {
	if c.stream != nil {
		if price, ok := c.stream.LastPrice(instrument); ok {
			if c.metrics != nil {
				c.metrics.RecordLastPrice(instrument, price)
			}
			return price, nil
		}
	}

	var mids map[string]string
	if err := c.post(ctx, "last_price", metaRequest{Type: "allMids"}, &mids); err != nil {
		return 0, fmt.Errorf("fetch last price %s: %w", instrument, err)
	}
	raw, ok := mids[instrument]
	if !ok {
		return 0, fmt.Errorf("no mid price for %s: %w", instrument, models.ErrNoData)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse mid price %s: %w", instrument, err)
	}
	if c.metrics != nil {
		c.metrics.RecordLastPrice(instrument, price)
	}
	return price, nil
}

// post rate-limits, sends one info request and decodes the JSON response.
func (c *Client) post(ctx context.Context, op string, body, dest interface{}) error {
	if err := c.waitForToken(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/info",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, dest)
	if c.metrics != nil {
		c.metrics.RecordLatency("provider_"+op, time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.metrics.RecordFetch(op, result)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	return nil
}

func (c *Client) waitForToken(ctx context.Context) error {
	for !c.limiter.Allow("info", c.rate, c.rate) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

func (r rawCandle) parse() (models.Candle, error) {
	var c models.Candle
	var err error
	c.Timestamp = time.UnixMilli(r.OpenTime).UTC()
	if c.Open, err = strconv.ParseFloat(r.Open, 64); err != nil {
		return c, err
	}
	if c.High, err = strconv.ParseFloat(r.High, 64); err != nil {
		return c, err
	}
	if c.Low, err = strconv.ParseFloat(r.Low, 64); err != nil {
		return c, err
	}
	if c.Close, err = strconv.ParseFloat(r.Close, 64); err != nil {
		return c, err
	}
	if c.Volume, err = strconv.ParseFloat(r.Volume, 64); err != nil {
		return c, err
	}
	return c, nil
}

var _ drepo.MarketDataProvider = (*Client)(nil)
