// Package rhythm scores timing agreement between two motion signals by
// comparing their frame-to-frame velocities.
//
// The comparison is scale-invariant: velocity magnitudes are normalized by
// the reference's mean magnitude, so centimeter and meter inputs score the
// same. Fewer than two samples on either side is not enough to derive a
// velocity and yields a neutral score rather than an error.
package rhythm

import (
	"math"

	"github.com/okian/kata/internal/domain/model"
)

const (
	// NeutralScore is returned when there is not enough data to compare.
	NeutralScore = 0.5

	// scaleEpsilon keeps the normalization finite for a motionless reference.
	scaleEpsilon = 1e-6
)

// Signal is a time series of per-frame feature vectors. Scalar signals are
// lifted to single-component vectors via FromScalars.
type Signal [][]float64

// FromScalars lifts a scalar series into a Signal.
func FromScalars(values []float64) Signal {
	s := make(Signal, len(values))
	for i, v := range values {
		s[i] = []float64{v}
	}
	return s
}

// velocityMagnitudes returns the Euclidean norm of each frame-to-frame
// difference. A series shorter than two frames has no velocity.
func velocityMagnitudes(s Signal) []float64 {
	if len(s) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev, curr := s[i-1], s[i]
		d := len(curr)
		if len(prev) < d {
			d = len(prev)
		}
		var sum float64
		for k := 0; k < d; k++ {
			diff := curr[k] - prev[k]
			sum += diff * diff
		}
		out = append(out, math.Sqrt(sum))
	}
	return out
}

// Score compares the velocity profiles of two signals and returns a
// similarity in [0,1]. Insufficient data on either side scores neutral.
func Score(player, ref Signal) float64 {
	pv := velocityMagnitudes(player)
	rv := velocityMagnitudes(ref)

	if len(pv) == 0 || len(rv) == 0 {
		return NeutralScore
	}

	n := len(pv)
	if len(rv) < n {
		n = len(rv)
	}

	var errSum, refSum float64
	for i := 0; i < n; i++ {
		errSum += math.Abs(pv[i] - rv[i])
		refSum += math.Abs(rv[i])
	}
	meanErr := errSum / float64(n)
	if math.IsNaN(meanErr) || math.IsInf(meanErr, 0) {
		return 0
	}

	denom := refSum/float64(n) + scaleEpsilon
	return model.Clamp01(math.Exp(-meanErr / denom))
}
