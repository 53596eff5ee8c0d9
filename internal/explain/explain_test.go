package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlens/fraudlens/internal/dataset"
)

func explainedSnapshot(t *testing.T, features []string, values, attribs []float64) *dataset.Snapshot {
	t.Helper()
	snap := dataset.New([]dataset.Transaction{{ID: "tx-1", RawScore: 0.7}}, nil)
	err := snap.WithExplanations(features, [][]float64{values}, [][]float64{attribs})
	require.NoError(t, err)
	return snap
}

func TestRank_TopKBySignedMagnitude(t *testing.T) {
	snap := explainedSnapshot(t,
		[]string{"A", "B", "C", "D", "E"},
		[]float64{1, 2, 3, 4, 5},
		[]float64{0.3, -0.9, 0.1, -0.05, 0.4},
	)

	ranked, err := Rank(snap, 0, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// Attribution -0.9 flips to +0.9 and ranks first; then E (0.4 -> -0.4),
	// then A (0.3 -> -0.3).
	assert.Equal(t, "B", ranked[0].Feature)
	assert.InDelta(t, 0.9, ranked[0].Influence, 1e-9)
	assert.Equal(t, "E", ranked[1].Feature)
	assert.InDelta(t, -0.4, ranked[1].Influence, 1e-9)
	assert.Equal(t, "A", ranked[2].Feature)
	assert.InDelta(t, -0.3, ranked[2].Influence, 1e-9)
}

func TestRank_LabelsRoundValues(t *testing.T) {
	snap := explainedSnapshot(t,
		[]string{"amt", "hour"},
		[]float64{1890.456, 2},
		[]float64{-0.8, 0.1},
	)

	ranked, err := Rank(snap, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "amt: 1890.46", ranked[0].Label)
	assert.Equal(t, "hour: 2", ranked[1].Label)
	// Raw value is preserved unrounded alongside the label.
	assert.InDelta(t, 1890.456, ranked[0].Value, 1e-9)
}

func TestRank_StableTieBreak(t *testing.T) {
	snap := explainedSnapshot(t,
		[]string{"first", "second", "third"},
		[]float64{0, 0, 0},
		[]float64{0.5, -0.5, 0.5},
	)

	ranked, err := Rank(snap, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "first", ranked[0].Feature)
	assert.Equal(t, "second", ranked[1].Feature)
	assert.Equal(t, "third", ranked[2].Feature)
}

func TestRank_DefaultK(t *testing.T) {
	snap := explainedSnapshot(t,
		[]string{"a", "b", "c", "d", "e", "f", "g"},
		[]float64{0, 0, 0, 0, 0, 0, 0},
		[]float64{7, 6, 5, 4, 3, 2, 1},
	)

	ranked, err := Rank(snap, 0, 0)
	require.NoError(t, err)
	assert.Len(t, ranked, DefaultTopK)
}

func TestRank_KLargerThanFeatureCount(t *testing.T) {
	snap := explainedSnapshot(t, []string{"a", "b"}, []float64{0, 0}, []float64{1, 2})
	ranked, err := Rank(snap, 0, 10)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestRank_IndexOutOfRange(t *testing.T) {
	snap := explainedSnapshot(t, []string{"a"}, []float64{0}, []float64{1})
	_, err := Rank(snap, 5, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = Rank(snap, -1, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRank_ExplanationUnavailable(t *testing.T) {
	snap := dataset.New([]dataset.Transaction{{ID: "tx-1"}}, nil)
	_, err := Rank(snap, 0, 3)
	assert.ErrorIs(t, err, ErrExplanationUnavailable)
}

func TestRankByID(t *testing.T) {
	snap := explainedSnapshot(t, []string{"a"}, []float64{3}, []float64{-0.2})

	ranked, err := RankByID(snap, "tx-1", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, ranked[0].Influence, 1e-9)

	_, err = RankByID(snap, "missing", 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
