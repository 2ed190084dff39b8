package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/okian/kata/internal/domain/model"
)

var ident = model.Quat{1, 0, 0, 0}

func rotX(deg float64) model.Quat {
	half := deg * math.Pi / 360
	return model.Quat{math.Cos(half), math.Sin(half), 0, 0}
}

func TestScore_IdenticalPoses(t *testing.T) {
	s := NewScorer()
	pose := map[string]model.Quat{
		"LeftHand":  rotX(30),
		"RightHand": rotX(-15),
		"Hips":      ident,
	}
	assert.InDelta(t, 1.0, s.Score(pose, pose), 1e-9)
}

func TestScore_NoOverlapIsZero(t *testing.T) {
	s := NewScorer()
	player := map[string]model.Quat{"LeftHand": ident}
	ref := map[string]model.Quat{"RightHand": ident}
	assert.Zero(t, s.Score(player, ref))
}

func TestScore_EmptyInputs(t *testing.T) {
	s := NewScorer()
	assert.Zero(t, s.Score(nil, nil))
	assert.Zero(t, s.Score(map[string]model.Quat{}, map[string]model.Quat{"LeftHand": ident}))
}

func TestScore_UnknownJointsIgnored(t *testing.T) {
	s := NewScorer()
	player := map[string]model.Quat{
		"LeftHand":  ident,
		"Tail":      rotX(170), // not in the weight table
		"Antenna_3": rotX(90),
	}
	ref := map[string]model.Quat{
		"LeftHand":  ident,
		"Tail":      ident,
		"Antenna_3": ident,
	}
	assert.InDelta(t, 1.0, s.Score(player, ref), 1e-9)
}

func TestScore_DisagreementLowersScore(t *testing.T) {
	s := NewScorer()
	ref := map[string]model.Quat{"LeftHand": ident, "RightHand": ident}
	near := map[string]model.Quat{"LeftHand": rotX(10), "RightHand": ident}
	far := map[string]model.Quat{"LeftHand": rotX(90), "RightHand": rotX(90)}

	scoreClose := s.Score(near, ref)
	scoreFar := s.Score(far, ref)
	assert.Greater(t, scoreClose, scoreFar)
	assert.Greater(t, scoreClose, 0.9)
}

func TestScore_WeightsShiftTheBlame(t *testing.T) {
	// The same disagreement on a heavy joint must cost more than on a
	// light one.
	heavy := NewScorer(WithJointWeights(map[string]float64{
		"LeftHand": 10.0,
		"Hips":     1.0,
	}))

	ref := map[string]model.Quat{"LeftHand": ident, "Hips": ident}
	offHand := map[string]model.Quat{"LeftHand": rotX(60), "Hips": ident}
	offHips := map[string]model.Quat{"LeftHand": ident, "Hips": rotX(60)}

	assert.Less(t, heavy.Score(offHand, ref), heavy.Score(offHips, ref))
}

func TestWithJointWeights_DropsNonPositive(t *testing.T) {
	s := NewScorer(WithJointWeights(map[string]float64{
		"LeftHand":  1.0,
		"RightHand": 0,
		"Hips":      -2.0,
	}))

	ref := map[string]model.Quat{"RightHand": ident, "Hips": ident}
	player := map[string]model.Quat{"RightHand": rotX(120), "Hips": rotX(120)}
	// Only dropped joints overlap, so nothing scoreable remains.
	assert.Zero(t, s.Score(player, ref))
}

func TestScore_NonFiniteRotationSkipped(t *testing.T) {
	s := NewScorer()
	ref := map[string]model.Quat{
		"LeftHand":  ident,
		"RightHand": ident,
	}
	player := map[string]model.Quat{
		"LeftHand":  {math.NaN(), 0, 0, 0},
		"RightHand": ident,
	}
	// The NaN quaternion normalizes to identity inside Distance, so it
	// still scores; the result must stay in range either way.
	got := s.Score(player, ref)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
