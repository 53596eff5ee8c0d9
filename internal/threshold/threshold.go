// Package threshold implements the decision engine behind the review
// dashboard: given the scored snapshot and a movable threshold it recomputes
// binary fraud decisions, the row-normalized confusion matrix, and the four
// quadrant views.
//
// Everything here is pure: the snapshot is never mutated and the same
// inputs always produce the same Evaluation.
package threshold

import (
	"errors"
	"fmt"

	"github.com/fraudlens/fraudlens/internal/dataset"
)

var (
	// ErrThresholdOutOfRange is returned for thresholds outside [0,1].
	ErrThresholdOutOfRange = errors.New("threshold out of range [0,1]")
	// ErrDegenerateMatrix is returned when a ground-truth class has no
	// members, which would make that row's rates a division by zero.
	ErrDegenerateMatrix = errors.New("degenerate confusion matrix: a ground-truth class is empty")
	// ErrUnknownQuadrant is returned when parsing an unrecognized quadrant name.
	ErrUnknownQuadrant = errors.New("unknown quadrant")
)

// Quadrant identifies one cell of the confusion matrix. Selection is a
// closed enum; there is no string-keyed view dispatch.
type Quadrant string

const (
	TruePositive  Quadrant = "true_positive"
	TrueNegative  Quadrant = "true_negative"
	FalsePositive Quadrant = "false_positive"
	FalseNegative Quadrant = "false_negative"
)

// Quadrants lists all quadrants in display order.
var Quadrants = []Quadrant{TruePositive, FalsePositive, TrueNegative, FalseNegative}

// ParseQuadrant maps a route parameter to a Quadrant.
func ParseQuadrant(s string) (Quadrant, error) {
	switch s {
	case "true_positive", "true_positives", "tp":
		return TruePositive, nil
	case "true_negative", "true_negatives", "tn":
		return TrueNegative, nil
	case "false_positive", "false_positives", "fp":
		return FalsePositive, nil
	case "false_negative", "false_negatives", "fn":
		return FalseNegative, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQuadrant, s)
}

// Matrix holds the row-normalized confusion matrix. Rates are conditioned
// on the ground-truth class, so TPR+FNR = 1 and TNR+FPR = 1.
type Matrix struct {
	TruePositiveRate  float64 `json:"truePositiveRate"`
	TrueNegativeRate  float64 `json:"trueNegativeRate"`
	FalsePositiveRate float64 `json:"falsePositiveRate"`
	FalseNegativeRate float64 `json:"falseNegativeRate"`

	// Raw counts behind the rates.
	TruePositives  int `json:"truePositives"`
	TrueNegatives  int `json:"trueNegatives"`
	FalsePositives int `json:"falsePositives"`
	FalseNegatives int `json:"falseNegatives"`
}

// Evaluation is the full derived view for one threshold: per-row decisions,
// the rate matrix, and quadrant membership over the labeled rows.
type Evaluation struct {
	Threshold float64
	Decisions []bool
	Matrix    Matrix

	quadrants map[Quadrant][]int
}

// Relabel recomputes the binary decision for every row: flagged iff the
// display score strictly exceeds the threshold. The decision runs on Score,
// the clamped [0,1] value the reviewer sees next to the slider — only the
// confidence band reads the unclamped raw output. No row is dropped;
// unlabeled rows get decisions too.
func Relabel(snap *dataset.Snapshot, t float64) ([]bool, error) {
	if t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: %v", ErrThresholdOutOfRange, t)
	}
	decisions := make([]bool, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		tx, _ := snap.At(i)
		decisions[i] = tx.Score > t
	}
	return decisions, nil
}

// Apply relabels the snapshot at threshold t and derives the confusion
// matrix and quadrant partition from the labeled rows. Rows without ground
// truth carry a decision but appear in no quadrant and no rate.
//
// When either ground-truth class is empty the matrix rates are undefined;
// Apply fails with ErrDegenerateMatrix instead of emitting NaN.
func Apply(snap *dataset.Snapshot, t float64) (*Evaluation, error) {
	decisions, err := Relabel(snap, t)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		Threshold: t,
		Decisions: decisions,
		quadrants: map[Quadrant][]int{
			TruePositive:  {},
			TrueNegative:  {},
			FalsePositive: {},
			FalseNegative: {},
		},
	}

	for i := 0; i < snap.Len(); i++ {
		tx, _ := snap.At(i)
		if tx.GroundTruth == nil {
			continue
		}
		q := quadrantOf(*tx.GroundTruth, decisions[i])
		eval.quadrants[q] = append(eval.quadrants[q], i)
	}

	m := &eval.Matrix
	m.TruePositives = len(eval.quadrants[TruePositive])
	m.TrueNegatives = len(eval.quadrants[TrueNegative])
	m.FalsePositives = len(eval.quadrants[FalsePositive])
	m.FalseNegatives = len(eval.quadrants[FalseNegative])

	labeledTrue := m.TruePositives + m.FalseNegatives
	labeledFalse := m.TrueNegatives + m.FalsePositives
	if labeledTrue == 0 || labeledFalse == 0 {
		return nil, fmt.Errorf("%w (fraud=%d, legitimate=%d)", ErrDegenerateMatrix, labeledTrue, labeledFalse)
	}

	m.TruePositiveRate = float64(m.TruePositives) / float64(labeledTrue)
	m.FalseNegativeRate = float64(m.FalseNegatives) / float64(labeledTrue)
	m.TrueNegativeRate = float64(m.TrueNegatives) / float64(labeledFalse)
	m.FalsePositiveRate = float64(m.FalsePositives) / float64(labeledFalse)

	return eval, nil
}

func quadrantOf(groundTruth, decision bool) Quadrant {
	switch {
	case groundTruth && decision:
		return TruePositive
	case groundTruth && !decision:
		return FalseNegative
	case !groundTruth && decision:
		return FalsePositive
	default:
		return TrueNegative
	}
}

// Quadrant returns the row indices in the given quadrant, in dataset order.
func (e *Evaluation) Quadrant(q Quadrant) []int {
	idxs := e.quadrants[q]
	out := make([]int, len(idxs))
	copy(out, idxs)
	return out
}

// QuadrantOf returns the quadrant of row i, or false when the row carries
// no ground truth (or is out of range).
func (e *Evaluation) QuadrantOf(snap *dataset.Snapshot, i int) (Quadrant, bool) {
	tx, ok := snap.At(i)
	if !ok || tx.GroundTruth == nil {
		return "", false
	}
	return quadrantOf(*tx.GroundTruth, e.Decisions[i]), true
}

// Counts returns the number of rows per quadrant.
func (e *Evaluation) Counts() map[Quadrant]int {
	out := make(map[Quadrant]int, len(e.quadrants))
	for q, idxs := range e.quadrants {
		out[q] = len(idxs)
	}
	return out
}
