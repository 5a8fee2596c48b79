package models

import (
	"fmt"
	"strconv"
	"time"
)

// RiskLevel is a deterministic bucketing of beta against the first
// reference asset.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskNormal RiskLevel = "Normal"
	RiskHigh   RiskLevel = "High"
)

// RiskLevelFor buckets a beta value:
// Low < 0.5 <= Medium < 0.8 <= Normal <= 1.2 < High.
func RiskLevelFor(beta float64) RiskLevel {
	switch {
	case beta > 1.2:
		return RiskHigh
	case beta >= 0.8:
		return RiskNormal
	case beta >= 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// BetaRow is one instrument's entry in a beta table. PriceChangePct and
// CurrentPrice are nil when the live price query failed; such rows keep
// their beta but carry no price columns.
type BetaRow struct {
	Instrument   string    `json:"instrument"`
	Beta         float64   `json:"beta"`
	PriceChange  *float64  `json:"price_change_pct,omitempty"`
	CurrentPrice *float64  `json:"current_price,omitempty"`
	Risk         RiskLevel `json:"risk_level,omitempty"`
}

// BetaTable maps instruments to beta statistics for one fixed window,
// sorted descending by beta.
type BetaTable []BetaRow

// Rows renders the table in row/column form for tabular export.
func (t BetaTable) Rows() [][]string {
	out := make([][]string, 0, len(t)+1)
	out = append(out, []string{"Instrument", "Beta", "Price Change %", "Current Price", "Risk Level"})
	for _, r := range t {
		change, price := "", ""
		if r.PriceChange != nil {
			change = fmt.Sprintf("%.2f", *r.PriceChange)
		}
		if r.CurrentPrice != nil {
			price = fmt.Sprintf("%.2f", *r.CurrentPrice)
		}
		out = append(out, []string{
			r.Instrument,
			strconv.FormatFloat(r.Beta, 'f', 3, 64),
			change,
			price,
			string(r.Risk),
		})
	}
	return out
}

// BetaPoint is one observation of a time-indexed rolling beta series.
type BetaPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Beta      float64   `json:"beta"`
}

// PatternBucket aggregates beta for one (day-of-week, hour-of-day) slot.
// Day is Monday=0 .. Sunday=6.
type PatternBucket struct {
	Day     int     `json:"day"`
	Hour    int     `json:"hour"`
	Beta    float64 `json:"beta"`
	Samples int     `json:"samples"`
}

// PatternRow is a ranked, display-oriented pattern bucket.
type PatternRow struct {
	Rank    int     `json:"rank"`
	Day     string  `json:"day"`
	Time    string  `json:"time"`
	Beta    float64 `json:"beta"`
	Samples int     `json:"samples"`
}

// CurrentWindow summarizes the bucket matching the evaluation-time UTC
// day-of-week and hour. Beta is nil when the bucket has fewer than the
// minimum number of samples.
type CurrentWindow struct {
	Day     string   `json:"day"`
	Time    string   `json:"time"`
	Beta    *float64 `json:"beta,omitempty"`
	Samples int      `json:"samples"`
}

// PatternResult is the full output of a beta pattern analysis. Series,
// HourlyBeta and DailyBeta come from the forward-filled, outlier-clipped
// rolling path; HighestBeta and LowestBeta come from the independent
// fixed-bucket path. The two paths are distinct statistics and are not
// reconciled.
type PatternResult struct {
	Instrument  string              `json:"instrument"`
	WindowSize  string              `json:"window_size"`
	Current     CurrentWindow       `json:"current_window"`
	HighestBeta []PatternRow        `json:"highest_beta"`
	LowestBeta  []PatternRow        `json:"lowest_beta"`
	Series      []BetaPoint         `json:"beta_series"`
	HourlyBeta  map[int]float64    `json:"hourly_beta"`
	DailyBeta   map[string]float64 `json:"daily_beta"`
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the Monday-indexed weekday name.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return dayNames[day]
}

// MondayIndex converts Go's Sunday-based weekday to Monday=0 .. Sunday=6.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// HourLabel formats an hour bucket as "HH:00-HH:00".
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00-%02d:00", hour, hour+1)
}
