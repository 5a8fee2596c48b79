package models

// HTTP request models bound from query parameters by the API layer.

type BetasRequest struct {
	From    string `query:"from" validate:"required"`
	To      string `query:"to" validate:"required"`
	Session string `query:"session"`
}

type PatternsRequest struct {
	Instrument string `query:"instrument" validate:"required,min=1,max=16"`
	From       string `query:"from" validate:"required"`
	To         string `query:"to" validate:"required"`
	Session    string `query:"session"`
}

type PricesRequest struct {
	Instrument string `query:"instrument" validate:"required,min=1,max=16"`
	From       string `query:"from" validate:"required"`
	To         string `query:"to" validate:"required"`
	Session    string `query:"session"`
}

type ChangesRequest struct {
	From        string `query:"from" validate:"required"`
	To          string `query:"to" validate:"required"`
	Session     string `query:"session"`
	Instruments string `query:"instruments"` // comma-separated; empty = whole active universe
}

// BetasResponse carries the two reference tables for one window.
type BetasResponse struct {
	Ref1      string    `json:"ref1"`
	Ref2      string    `json:"ref2"`
	Ref1Table BetaTable `json:"ref1_table"`
	Ref2Table BetaTable `json:"ref2_table"`
}
