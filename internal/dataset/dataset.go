// Package dataset holds the immutable scored-transaction snapshot the review
// dashboard is built on.
//
// The scoring pipeline runs upstream: every transaction arrives already
// annotated with a raw model output and (in this dataset) a ground-truth
// fraud label. The snapshot is built once at startup and never mutated;
// threshold decisions are derived views owned by the callers.
package dataset

import (
	"math"
	"time"
)

// Band is the coarse confidence bucket shown next to a score.
// It is derived from the raw model output and never changes with the
// decision threshold.
type Band string

const (
	BandLow    Band = "Low"
	BandMedium Band = "Medium"
	BandHigh   Band = "High"
)

// Band cut points on the raw model output.
const (
	lowCutoff  = 0.2
	highCutoff = 0.5
)

// BandFor computes the confidence band from the raw, unclamped model output.
//
// The model can emit values above 1; the displayed score is clamped but the
// band is not. A raw output of exactly 0.5 stays Medium — the High branch
// requires strict exceedance.
func BandFor(raw float64) Band {
	band := BandMedium
	if raw < lowCutoff {
		band = BandLow
	}
	if band == BandMedium && raw > highCutoff {
		band = BandHigh
	}
	return band
}

// DisplayScore converts a raw model output into the score shown to
// reviewers: rounded to 2 decimals and clamped to 1. Rounding is half to
// even, matching the convention of the scoring pipeline that produced the
// dataset, so exact halves like 0.125 land on 0.12.
func DisplayScore(raw float64) float64 {
	return math.Min(1, math.RoundToEven(raw*100)/100)
}

// Transaction is one scored transaction. RawScore is the unclamped model
// output and drives banding; Score is the clamped, rounded display value
// that threshold decisions compare against. Both are kept — collapsing
// them changes band assignment near 0.5.
type Transaction struct {
	ID          string     `json:"transactionId"`
	Client      string     `json:"client"`
	Merchant    string     `json:"merchant"`
	Category    string     `json:"category"`
	Amount      float64    `json:"amount"`
	CardNumber  string     `json:"cardNumber"`
	Timestamp   time.Time  `json:"timestamp"`
	RawScore    float64    `json:"rawScore"`
	Score       float64    `json:"score"`
	Band        Band       `json:"band"`
	GroundTruth *bool      `json:"groundTruth,omitempty"`
}

// Labeled reports whether the transaction carries a ground-truth label.
func (t Transaction) Labeled() bool {
	return t.GroundTruth != nil
}

// Client is the person behind one or more transactions, keyed by display
// name (first + last, unique in this dataset). Immutable after load.
type Client struct {
	Name           string  `json:"name"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Gender         string  `json:"gender"`
	Street         string  `json:"street"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	ZIP            string  `json:"zip"`
	JobTitle       string  `json:"jobTitle"`
	Age            int     `json:"age"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CityPopulation int     `json:"cityPopulation"`
	Photo          string  `json:"photo,omitempty"`
}
