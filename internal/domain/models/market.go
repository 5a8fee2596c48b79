package models

import "time"

// InstrumentMeta describes a listed instrument at the provider boundary.
// The rest of the system refers to instruments by plain ticker ("BTC");
// provider-specific symbol forms never leave the provider package.
type InstrumentMeta struct {
	Symbol         string
	IsActivePerp   bool
	SettleCurrency string
}

// Candle represents one OHLCV record at fixed 5-minute granularity.
// Timestamps are UTC. Within one cached chunk timestamps are strictly
// increasing and unique.
type Candle struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// PricePoint is one close price observation.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// PriceSeries is an ordered close-price series for one instrument:
// sorted ascending by timestamp, no duplicate timestamps, possibly with
// irregular gaps where the provider had no data.
type PriceSeries []PricePoint

// First returns the earliest point; the boolean is false for an empty series.
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[0], true
}

// Last returns the latest point; the boolean is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// ClosesOf extracts the close prices of candles as a PriceSeries.
func ClosesOf(candles []Candle) PriceSeries {
	out := make(PriceSeries, 0, len(candles))
	for _, c := range candles {
		out = append(out, PricePoint{Timestamp: c.Timestamp, Price: c.Close})
	}
	return out
}

// Returns computes consecutive percentage returns: r[i] = p[i+1]/p[i] - 1.
// The result has len(s)-1 points, each stamped with the later timestamp.
// Zero prices yield a zero return rather than an infinity.
func (s PriceSeries) Returns() []ReturnPoint {
	if len(s) < 2 {
		return nil
	}
	out := make([]ReturnPoint, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		var r float64
		if s[i-1].Price != 0 {
			r = s[i].Price/s[i-1].Price - 1
		}
		out = append(out, ReturnPoint{Timestamp: s[i].Timestamp, Return: r})
	}
	return out
}

// ReturnPoint is one percentage-return observation.
type ReturnPoint struct {
	Timestamp time.Time
	Return    float64
}

// AlignSeries inner-joins two price series on common timestamps, preserving
// ascending order. Rows present on only one side are dropped.
func AlignSeries(a, b PriceSeries) (PriceSeries, PriceSeries) {
	idx := make(map[int64]float64, len(b))
	for _, p := range b {
		idx[p.Timestamp.UnixMilli()] = p.Price
	}
	outA := make(PriceSeries, 0, len(a))
	outB := make(PriceSeries, 0, len(a))
	for _, p := range a {
		if bp, ok := idx[p.Timestamp.UnixMilli()]; ok {
			outA = append(outA, p)
			outB = append(outB, PricePoint{Timestamp: p.Timestamp, Price: bp})
		}
	}
	return outA, outB
}

// PriceChange is the result of a price-change query for one instrument.
type PriceChange struct {
	Instrument   string  `json:"instrument"`
	ChangePct    float64 `json:"change_pct"`
	CurrentPrice float64 `json:"current_price"`
}
