// Package explain ranks the per-feature attributions behind one prediction
// into the top-k list shown on the analysis page.
package explain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/fraudlens/fraudlens/internal/dataset"
)

var (
	// ErrIndexOutOfRange is returned when the requested row doesn't exist.
	ErrIndexOutOfRange = errors.New("row index out of range")
	// ErrExplanationUnavailable is returned when the snapshot was built
	// without attribution vectors.
	ErrExplanationUnavailable = errors.New("explanation vectors unavailable")
)

// DefaultTopK is the number of features shown when the caller doesn't ask
// for a specific k.
const DefaultTopK = 5

// Contribution is one ranked feature of an explanation. Influence is the
// NEGATED raw attribution: positive influence means "pushes toward fraud"
// in the chart. The sign flip is a display contract with the UI, not a bug.
type Contribution struct {
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`     // model input value, as scored
	Label     string  `json:"label"`     // "feature: value", value rounded to 2 decimals
	Influence float64 `json:"influence"` // negated attribution
}

// Rank returns the top-k contributions for row idx, ordered by absolute
// influence descending. Ties keep the model's feature order (stable sort).
// k <= 0 selects DefaultTopK.
func Rank(snap *dataset.Snapshot, idx, k int) ([]Contribution, error) {
	if !snap.HasExplanations() {
		return nil, ErrExplanationUnavailable
	}
	if idx < 0 || idx >= snap.Len() {
		return nil, fmt.Errorf("%w: %d (dataset has %d rows)", ErrIndexOutOfRange, idx, snap.Len())
	}
	if k <= 0 {
		k = DefaultTopK
	}

	values, attribs, ok := snap.Explanation(idx)
	if !ok {
		return nil, ErrExplanationUnavailable
	}

	features := snap.Features()
	contributions := make([]Contribution, len(features))
	for i, name := range features {
		contributions[i] = Contribution{
			Feature:   name,
			Value:     values[i],
			Label:     name + ": " + formatValue(values[i]),
			Influence: -attribs[i],
		}
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Influence) > math.Abs(contributions[j].Influence)
	})

	if len(contributions) > k {
		contributions = contributions[:k]
	}
	return contributions, nil
}

// RankByID resolves a transaction identifier to its row and ranks it.
func RankByID(snap *dataset.Snapshot, id string, k int) ([]Contribution, error) {
	idx, ok := snap.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: transaction %q", ErrIndexOutOfRange, id)
	}
	return Rank(snap, idx, k)
}

// formatValue rounds to 2 decimals and drops trailing zeros, so 18.754
// shows as "18.75" and 12.0 as "12".
func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
