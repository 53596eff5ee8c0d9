package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlens/fraudlens/internal/dataset"
)

func boolPtr(b bool) *bool { return &b }

// snapshotFromScores builds a snapshot with the given raw scores and ground
// truths. A nil entry in truths means the row is unlabeled.
func snapshotFromScores(scores []float64, truths []*bool) *dataset.Snapshot {
	base := time.Date(2020, 6, 21, 0, 0, 0, 0, time.UTC)
	txs := make([]dataset.Transaction, len(scores))
	for i, s := range scores {
		txs[i] = dataset.Transaction{
			ID:          string(rune('a' + i)),
			Client:      "Test Client",
			Amount:      10,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			RawScore:    s,
			Score:       dataset.DisplayScore(s),
			Band:        dataset.BandFor(s),
			GroundTruth: truths[i],
		}
	}
	return dataset.New(txs, nil)
}

func fourRowSnapshot() *dataset.Snapshot {
	return snapshotFromScores(
		[]float64{0.1, 0.3, 0.6, 0.9},
		[]*bool{boolPtr(false), boolPtr(false), boolPtr(true), boolPtr(true)},
	)
}

func TestApply_ReferenceScenario(t *testing.T) {
	snap := fourRowSnapshot()

	eval, err := Apply(snap, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true}, eval.Decisions)
	assert.InDelta(t, 1.0, eval.Matrix.TruePositiveRate, 1e-9)
	assert.InDelta(t, 1.0, eval.Matrix.TrueNegativeRate, 1e-9)
	assert.InDelta(t, 0.0, eval.Matrix.FalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.0, eval.Matrix.FalseNegativeRate, 1e-9)

	eval, err = Apply(snap, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true}, eval.Decisions)
	assert.InDelta(t, 1.0, eval.Matrix.TruePositiveRate, 1e-9)
	assert.InDelta(t, 0.0, eval.Matrix.TrueNegativeRate, 1e-9)
	assert.InDelta(t, 1.0, eval.Matrix.FalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.0, eval.Matrix.FalseNegativeRate, 1e-9)
}

// Within each ground-truth class the two rates always sum to 1.
func TestApply_RatesSumToOnePerClass(t *testing.T) {
	snap := snapshotFromScores(
		[]float64{0.05, 0.15, 0.33, 0.48, 0.52, 0.71, 0.88, 0.97},
		[]*bool{
			boolPtr(false), boolPtr(false), boolPtr(true), boolPtr(false),
			boolPtr(true), boolPtr(false), boolPtr(true), boolPtr(true),
		},
	)

	for tr := 0.0; tr <= 1.0; tr += 0.01 {
		eval, err := Apply(snap, tr)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, eval.Matrix.TruePositiveRate+eval.Matrix.FalseNegativeRate, 1e-9)
		assert.InDelta(t, 1.0, eval.Matrix.TrueNegativeRate+eval.Matrix.FalsePositiveRate, 1e-9)
	}
}

// Raising the threshold can only un-flag transactions, never flag new ones.
func TestRelabel_MonotoneInThreshold(t *testing.T) {
	snap := fourRowSnapshot()

	prev, err := Relabel(snap, 0.0)
	require.NoError(t, err)
	for tr := 0.01; tr <= 1.0; tr += 0.01 {
		cur, err := Relabel(snap, tr)
		require.NoError(t, err)
		for i := range cur {
			if cur[i] {
				assert.True(t, prev[i], "row %d flagged at %v but not at lower threshold", i, tr)
			}
		}
		prev = cur
	}
}

func TestRelabel_StrictExceedance(t *testing.T) {
	snap := snapshotFromScores([]float64{0.5}, []*bool{boolPtr(true)})
	decisions, err := Relabel(snap, 0.5)
	require.NoError(t, err)
	// score == threshold is not flagged
	assert.False(t, decisions[0])
}

// Decisions run on the displayed (rounded) score, not the raw model output:
// a raw score of 0.304 displays as 0.30 and must not be flagged at a 0.30
// threshold even though the raw value exceeds it.
func TestRelabel_ComparesDisplayScore(t *testing.T) {
	snap := snapshotFromScores(
		[]float64{0.304, 0.309},
		[]*bool{boolPtr(true), boolPtr(true)},
	)

	decisions, err := Relabel(snap, 0.30)
	require.NoError(t, err)
	assert.False(t, decisions[0], "0.304 displays as 0.30, equal to the threshold")
	assert.True(t, decisions[1], "0.309 displays as 0.31, above the threshold")

	// Raw scores above 1 clamp to a display score of 1.0 and can never
	// strictly exceed a threshold of 1.
	snap = snapshotFromScores([]float64{1.12}, []*bool{boolPtr(true)})
	decisions, err = Relabel(snap, 1.0)
	require.NoError(t, err)
	assert.False(t, decisions[0])
}

func TestRelabel_OutOfRange(t *testing.T) {
	snap := fourRowSnapshot()
	_, err := Relabel(snap, -0.01)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)
	_, err = Relabel(snap, 1.01)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)
	_, err = Apply(snap, 2)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)
}

func TestApply_DegenerateMatrix(t *testing.T) {
	// All ground truths false: the fraud class is empty.
	snap := snapshotFromScores(
		[]float64{0.1, 0.9},
		[]*bool{boolPtr(false), boolPtr(false)},
	)
	_, err := Apply(snap, 0.5)
	assert.ErrorIs(t, err, ErrDegenerateMatrix)

	// Decisions are still available through Relabel.
	decisions, err := Relabel(snap, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, decisions)
}

func TestApply_QuadrantsPartitionLabeledRows(t *testing.T) {
	// Row 4 is unlabeled: it must appear in no quadrant.
	snap := snapshotFromScores(
		[]float64{0.1, 0.3, 0.6, 0.9, 0.7},
		[]*bool{boolPtr(false), boolPtr(true), boolPtr(false), boolPtr(true), nil},
	)

	eval, err := Apply(snap, 0.5)
	require.NoError(t, err)

	seen := make(map[int]bool)
	total := 0
	for _, q := range Quadrants {
		for _, i := range eval.Quadrant(q) {
			assert.False(t, seen[i], "row %d in two quadrants", i)
			seen[i] = true
			total++
		}
	}
	assert.Equal(t, 4, total)
	assert.False(t, seen[4], "unlabeled row must be excluded")

	// Unlabeled row still carries a decision.
	assert.True(t, eval.Decisions[4])

	q, ok := eval.QuadrantOf(snap, 3)
	require.True(t, ok)
	assert.Equal(t, TruePositive, q)
	_, ok = eval.QuadrantOf(snap, 4)
	assert.False(t, ok)
}

func TestApply_Idempotent(t *testing.T) {
	snap := fourRowSnapshot()
	a, err := Apply(snap, 0.42)
	require.NoError(t, err)
	b, err := Apply(snap, 0.42)
	require.NoError(t, err)
	assert.Equal(t, a.Decisions, b.Decisions)
	assert.Equal(t, a.Matrix, b.Matrix)
	for _, q := range Quadrants {
		assert.Equal(t, a.Quadrant(q), b.Quadrant(q))
	}
}

// The confidence band never moves with the threshold.
func TestBandIndependentOfThreshold(t *testing.T) {
	snap := fourRowSnapshot()
	var bands []dataset.Band
	for i := 0; i < snap.Len(); i++ {
		tx, _ := snap.At(i)
		bands = append(bands, tx.Band)
	}

	for _, tr := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		_, err := Apply(snap, tr)
		require.NoError(t, err)
		for i := 0; i < snap.Len(); i++ {
			tx, _ := snap.At(i)
			assert.Equal(t, bands[i], tx.Band)
		}
	}
}

func TestParseQuadrant(t *testing.T) {
	for _, s := range []string{"tp", "true_positive", "true_positives"} {
		q, err := ParseQuadrant(s)
		require.NoError(t, err)
		assert.Equal(t, TruePositive, q)
	}
	_, err := ParseQuadrant("positives")
	assert.ErrorIs(t, err, ErrUnknownQuadrant)
}

func TestCounts(t *testing.T) {
	snap := fourRowSnapshot()
	eval, err := Apply(snap, 0.5)
	require.NoError(t, err)
	counts := eval.Counts()
	assert.Equal(t, 2, counts[TruePositive])
	assert.Equal(t, 2, counts[TrueNegative])
	assert.Equal(t, 0, counts[FalsePositive])
	assert.Equal(t, 0, counts[FalseNegative])
}
