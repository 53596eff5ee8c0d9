package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want Band
	}{
		{"well below low cutoff", 0.05, BandLow},
		{"just below low cutoff", 0.19999, BandLow},
		{"at low cutoff", 0.2, BandMedium},
		{"mid band", 0.35, BandMedium},
		{"exactly at high cutoff stays medium", 0.5, BandMedium},
		{"just above high cutoff", 0.50001, BandHigh},
		{"high", 0.9, BandHigh},
		{"unclamped raw output above 1", 1.3, BandHigh},
		{"negative raw output", -0.1, BandLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BandFor(tt.raw))
		})
	}
}

// The band comes from the raw output; the display score is clamped and
// rounded separately. A raw 1.3 shows as 1.00 but still bands High, and a
// raw 0.504 shows as 0.5 but bands High.
func TestBandUsesRawNotDisplayScore(t *testing.T) {
	raw := 0.504
	assert.InDelta(t, 0.5, DisplayScore(raw), 1e-9)
	assert.Equal(t, BandHigh, BandFor(raw))

	raw = 1.3
	assert.InDelta(t, 1.0, DisplayScore(raw), 1e-9)
	assert.Equal(t, BandHigh, BandFor(raw))
}

func TestDisplayScore(t *testing.T) {
	assert.InDelta(t, 0.12, DisplayScore(0.123), 1e-9)
	assert.InDelta(t, 1.0, DisplayScore(2.7), 1e-9)
	assert.InDelta(t, 0.0, DisplayScore(0.004), 1e-9)
}

// Exact halves round to the even neighbor, the same convention as the
// scoring pipeline. 0.125 and 0.875 are exactly representable, so both
// directions of the tie-break are exercised.
func TestDisplayScore_HalfToEven(t *testing.T) {
	assert.InDelta(t, 0.12, DisplayScore(0.125), 1e-9)
	assert.InDelta(t, 0.88, DisplayScore(0.875), 1e-9)
	assert.InDelta(t, 0.38, DisplayScore(0.375), 1e-9)
}
