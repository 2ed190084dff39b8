// Package model contains domain models passed between layers.
package model

import "math"

// Quat is a rotation quaternion. The component order of incoming data is
// not guaranteed (wxyz vs xyzw), so consumers must not assume a convention;
// see the pose package for the dual-hypothesis distance.
type Quat [4]float64

// Vec3 is a 3D position in meters.
type Vec3 [3]float64

// Finite reports whether every component is a finite number.
func (q Quat) Finite() bool {
	for _, c := range q {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Finite reports whether every component is a finite number.
func (v Vec3) Finite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// BoneSample is one tracked bone transform: rotation plus position.
// The JSON field names mirror the raw mocopi-style stream.
type BoneSample struct {
	Rotation Quat `json:"rot_xyzw"`
	Position Vec3 `json:"pos_xyz"`
}

// SkeletonBone is one entry of the static skeleton hierarchy announced by
// the capture device. Rest is the optional rest-pose transform.
type SkeletonBone struct {
	ID       int
	ParentID int
	Rest     *BoneSample
}

// Frame is a single decoded capture frame: ephemeral, consumed immediately
// by the stream adapter.
type Frame struct {
	Num   uint32
	Time  uint32
	Bones map[int]BoneSample
}

// RawFrame carries one raw bone-sample packet for a stream, as produced by
// the ingest layer or submitted directly by clients. Time is in nanoseconds.
// Reset/Command act as an in-band session reset request.
type RawFrame struct {
	Time    int64                 `json:"time"`
	Bones   map[string]BoneSample `json:"bones"`
	Reset   bool                  `json:"reset,omitempty"`
	Command string                `json:"command,omitempty"`
}

// WantsReset reports whether the frame is an in-band reset request.
func (f RawFrame) WantsReset() bool {
	return f.Reset || f.Command == "reset"
}

// MotionSnapshot is the scoring-format view of one stream at one instant:
// current rotations per joint plus the bounded position history accumulated
// so far. Trajectory slices never exceed the adapter's window size.
type MotionSnapshot struct {
	Timestamp    float64           `json:"timestamp"`
	Rotations    map[string]Quat   `json:"rotations"`
	Trajectories map[string][]Vec3 `json:"trajectories"`
	RhythmSignal []float64         `json:"rhythm_signal"`
	Reset        bool              `json:"reset,omitempty"`
	Command      string            `json:"command,omitempty"`
}

// WantsReset reports whether the snapshot is an in-band reset request.
func (s MotionSnapshot) WantsReset() bool {
	return s.Reset || s.Command == "reset"
}

// Grade buckets a final score for the UI layer.
type Grade string

// Grade values, best to worst.
const (
	GradePerfect Grade = "Perfect"
	GradeGood    Grade = "Good"
	GradeOK      Grade = "OK"
	GradeMiss    Grade = "Miss"
)

// Grade thresholds (inclusive lower bounds).
const (
	perfectThreshold = 0.85
	goodThreshold    = 0.70
	okThreshold      = 0.50
)

// GradeFor maps a final score in [0,1] to its letter grade.
func GradeFor(score float64) Grade {
	switch {
	case score >= perfectThreshold:
		return GradePerfect
	case score >= goodThreshold:
		return GradeGood
	case score >= okThreshold:
		return GradeOK
	default:
		return GradeMiss
	}
}

// ScoreResult is the composite outcome of one scoring call. It is always
// well-formed: failures are reported through OK/Error, never by omission.
type ScoreResult struct {
	Final           float64  `json:"final"`
	Pose            float64  `json:"pose"`
	Trajectory      float64  `json:"trajectory"`
	Rhythm          float64  `json:"rhythm"`
	Grade           Grade    `json:"grade,omitempty"`
	OK              bool     `json:"ok"`
	TrajectoryValid bool     `json:"trajectory_valid"`
	DTWCost         *float64 `json:"dtw_cost"`
	Reset           bool     `json:"reset,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// FailureResult builds the zeroed Miss result used when scoring fails.
func FailureResult(msg string) ScoreResult {
	return ScoreResult{Grade: GradeMiss, Error: msg}
}

// ResetAck builds the acknowledgment returned for an in-band reset request.
// No scoring happens for a reset call, so all subscores stay zero.
func ResetAck() ScoreResult {
	return ScoreResult{OK: true, Reset: true}
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
