package rhythm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int, step float64) Signal {
	s := make(Signal, n)
	for i := range s {
		s[i] = []float64{float64(i) * step}
	}
	return s
}

func TestScore_TooShortIsNeutral(t *testing.T) {
	long := ramp(10, 0.1)

	assert.Equal(t, NeutralScore, Score(nil, long))
	assert.Equal(t, NeutralScore, Score(long, nil))
	assert.Equal(t, NeutralScore, Score(Signal{{1}}, long))
	assert.Equal(t, NeutralScore, Score(long, Signal{{1}}))
}

func TestScore_IdenticalSignals(t *testing.T) {
	s := ramp(30, 0.05)
	assert.InDelta(t, 1.0, Score(s, s), 1e-9)
}

func TestScore_ScaleInvariantNormalization(t *testing.T) {
	// Same timing at 10x the amplitude: the proportional error is
	// identical, so the score is too.
	small := ramp(20, 0.01)
	big := ramp(20, 0.1)

	fastSmall := ramp(20, 0.02)
	fastBig := ramp(20, 0.2)

	// Not exactly equal: the epsilon in the denominator weighs slightly
	// more at small amplitudes.
	assert.InDelta(t, Score(fastSmall, small), Score(fastBig, big), 1e-4)
}

func TestScore_TimingMismatchLowersScore(t *testing.T) {
	ref := ramp(30, 0.05)
	slightlyOff := ramp(30, 0.06)
	wayOff := ramp(30, 0.30)

	assert.Greater(t, Score(slightlyOff, ref), Score(wayOff, ref))
	assert.Less(t, Score(wayOff, ref), 0.1)
}

func TestScore_MotionlessReference(t *testing.T) {
	still := make(Signal, 10)
	for i := range still {
		still[i] = []float64{1.0}
	}
	moving := ramp(10, 0.5)

	// Epsilon keeps the normalization finite; a moving performer against
	// a still reference scores very low but stays in range.
	got := Score(moving, still)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 0.01)

	// Still vs still is perfect agreement.
	assert.InDelta(t, 1.0, Score(still, still), 1e-9)
}

func TestScore_LengthMismatchUsesSharedPrefix(t *testing.T) {
	ref := ramp(30, 0.05)
	short := ramp(10, 0.05)
	assert.InDelta(t, 1.0, Score(short, ref), 1e-9)
}

func TestScore_NonFiniteVelocity(t *testing.T) {
	ref := ramp(10, 0.05)
	bad := ramp(10, 0.05)
	bad[5] = []float64{math.Inf(1)}

	got := Score(bad, ref)
	assert.False(t, math.IsNaN(got))
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestFromScalars(t *testing.T) {
	s := FromScalars([]float64{1, 2, 3})
	assert.Len(t, s, 3)
	assert.Equal(t, []float64{2}, s[1])
	assert.Empty(t, FromScalars(nil))
}
