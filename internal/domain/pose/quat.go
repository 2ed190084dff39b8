package pose

import (
	"math"

	"github.com/okian/kata/internal/domain/model"
)

// minQuatNorm is the threshold below which a quaternion is treated as
// degenerate and replaced by the identity rotation.
const minQuatNorm = 1e-8

// identity is the no-rotation quaternion in wxyz order.
var identity = model.Quat{1, 0, 0, 0}

// unit normalizes q to unit length. Degenerate or non-finite input maps to
// the identity quaternion rather than poisoning downstream math.
func unit(q model.Quat) model.Quat {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if math.IsNaN(n) || math.IsInf(n, 0) || n < minQuatNorm {
		return identity
	}
	return model.Quat{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

// angle returns the rotation angle between two unit quaternions. The
// absolute dot product collapses the double cover: q and -q describe the
// same rotation, so the result lives in [0, pi/2].
func angle(a, b model.Quat) float64 {
	dot := math.Abs(a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3])
	if dot > 1 {
		dot = 1
	}
	return math.Acos(dot)
}

// shifted reinterprets q under the alternate component convention by
// cycling the scalar component to the front.
func shifted(q model.Quat) model.Quat {
	return model.Quat{q[3], q[0], q[1], q[2]}
}

// Distance returns a normalized rotation distance in [0,1] between two
// quaternions whose component order is not guaranteed. Both plausible
// orderings are evaluated and the smaller angle wins; this deliberately
// trades a little discrimination for robustness against mixed conventions.
// 0 means identical rotation, 1 maximal disagreement under this metric.
func Distance(q1, q2 model.Quat) float64 {
	direct := angle(unit(q1), unit(q2))
	cycled := angle(unit(shifted(q1)), unit(shifted(q2)))

	ang := math.Min(direct, cycled)
	return model.Clamp01(ang / (math.Pi / 2))
}
