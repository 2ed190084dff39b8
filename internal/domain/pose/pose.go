// Package pose scores how closely two sets of joint rotations agree.
//
// The scorer is stateless: each call compares the performer's current
// rotations against the reference's, weighted per joint, and returns a
// similarity in [0,1]. Joints missing on either side contribute nothing.
package pose

import (
	"math"

	"github.com/okian/kata/internal/domain/model"
)

// minWeightSum guards the division when no joints overlap.
const minWeightSum = 1e-8

// DefaultJointWeights emphasizes extremities: hands and feet carry the
// choreography, limbs follow, the torso anchors.
func DefaultJointWeights() map[string]float64 {
	return map[string]float64{
		"Hips":      0.5,
		"Spine":     0.5,
		"LeftArm":   1.0,
		"RightArm":  1.0,
		"LeftLeg":   1.0,
		"RightLeg":  1.0,
		"LeftHand":  2.0,
		"RightHand": 2.0,
		"LeftFoot":  2.0,
		"RightFoot": 2.0,
	}
}

// Scorer computes weighted pose similarity.
type Scorer struct {
	weights map[string]float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithJointWeights replaces the joint weight table. Non-positive weights
// are dropped.
func WithJointWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		if len(weights) == 0 {
			return
		}
		s.weights = make(map[string]float64, len(weights))
		for joint, w := range weights {
			if w > 0 {
				s.weights[joint] = w
			}
		}
	}
}

// NewScorer creates a pose scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultJointWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score compares performer rotations against reference rotations and
// returns a similarity in [0,1]. Joints absent from either map are skipped,
// as are non-finite distances; if nothing overlaps the score is 0.
func (s *Scorer) Score(player, ref map[string]model.Quat) float64 {
	var total, weightSum float64

	for joint, w := range s.weights {
		pq, ok := player[joint]
		if !ok {
			continue
		}
		rq, ok := ref[joint]
		if !ok {
			continue
		}

		d := Distance(pq, rq)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}

		total += w * d
		weightSum += w
	}

	if weightSum <= minWeightSum {
		return 0
	}

	return model.Clamp01(1 - total/weightSum)
}
