package models

import "errors"

// Sentinel errors distinguishing "no data at all" from "data present but a
// particular metric undefined". Callers match with errors.Is; none of these
// may escape the core as a panic.
var (
	// ErrNoData means no span yielded any data for the request.
	ErrNoData = errors.New("no data available")

	// ErrInsufficientData means fewer aligned samples than the statistic
	// requires (2 for beta, 5 for a pattern bucket).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrZeroVariance means the reference returns have zero variance, so
	// beta is undefined for the window.
	ErrZeroVariance = errors.New("zero variance in reference returns")

	// ErrProviderUnavailable means a provider call failed for one
	// instrument; batches recover by omitting the instrument.
	ErrProviderUnavailable = errors.New("market data provider unavailable")
)
