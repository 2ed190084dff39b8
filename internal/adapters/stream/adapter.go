// Package stream converts raw bone-sample frames into scoring-format
// motion snapshots, accumulating a bounded per-joint position history for
// each logical stream.
//
// The adapter is the only stateful step between the wire and the scorers:
// it remembers the sliding trajectory window per stream so that every
// snapshot carries the full recent path of each tracked joint, not just
// the newest sample. State lives per adapter instance; each session owns
// its own.
package stream

import (
	"fmt"

	"github.com/okian/kata/internal/domain/model"
)

// Logical stream names. Histories are kept independently per stream.
const (
	Performer = "performer"
	Reference = "reference"
)

// DefaultWindowSize bounds each joint's position history (~1s at 60 FPS).
const DefaultWindowSize = 60

// DefaultBoneJoints maps recognized wire bone ids to scorable joint names.
// Unlisted bones are ignored. Extend this map to score more of the body.
func DefaultBoneJoints() map[string]string {
	return map[string]string{
		"l_hand": "LeftHand",
		"r_hand": "RightHand",
	}
}

// Adapter maintains per-stream joint histories and produces motion
// snapshots. Not safe for concurrent use.
type Adapter struct {
	window     int
	boneJoints map[string]string

	// stream -> joint -> bounded position history, oldest first
	histories map[string]map[string][]model.Vec3
}

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithWindowSize bounds each joint's retained history length.
func WithWindowSize(w int) Option {
	return func(a *Adapter) {
		if w > 0 {
			a.window = w
		}
	}
}

// WithBoneJoints replaces the recognized bone-to-joint mapping.
func WithBoneJoints(m map[string]string) Option {
	return func(a *Adapter) {
		if len(m) == 0 {
			return
		}
		a.boneJoints = make(map[string]string, len(m))
		for bone, joint := range m {
			a.boneJoints[bone] = joint
		}
	}
}

// NewAdapter creates a stream adapter with configuration options.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		window:     DefaultWindowSize,
		boneJoints: DefaultBoneJoints(),
		histories: map[string]map[string][]model.Vec3{
			Performer: {},
			Reference: {},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adapt folds one raw frame into the named stream's history and returns
// the scoring-format snapshot: current rotations plus the entire current
// trajectory window per recognized joint. Unrecognized bones are skipped
// silently; a non-finite rotation or position is excluded from whichever
// structure it would enter without affecting the rest of the frame.
func (a *Adapter) Adapt(streamName string, frame model.RawFrame) (model.MotionSnapshot, error) {
	history, ok := a.histories[streamName]
	if !ok {
		return model.MotionSnapshot{}, fmt.Errorf("stream must be %q or %q, got %q",
			Performer, Reference, streamName)
	}

	snap := model.MotionSnapshot{
		Timestamp:    float64(frame.Time) / 1e9,
		Rotations:    make(map[string]model.Quat),
		Trajectories: make(map[string][]model.Vec3),
		RhythmSignal: []float64{},
	}

	for bone, sample := range frame.Bones {
		joint, recognized := a.boneJoints[bone]
		if !recognized {
			continue
		}

		if sample.Rotation.Finite() {
			snap.Rotations[joint] = sample.Rotation
		}

		if sample.Position.Finite() {
			h := append(history[joint], sample.Position)
			if len(h) > a.window {
				h = h[len(h)-a.window:]
			}
			history[joint] = h
		}

		if h := history[joint]; len(h) > 0 {
			// Hand out a copy: snapshots are per-call, the history is not.
			traj := make([]model.Vec3, len(h))
			copy(traj, h)
			snap.Trajectories[joint] = traj
		}
	}

	return snap, nil
}

// Reset clears the history of every stream. Safe to call at any time,
// independently of scoring.
func (a *Adapter) Reset() {
	for name := range a.histories {
		a.histories[name] = map[string][]model.Vec3{}
	}
}
