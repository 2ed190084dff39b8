// Package session orchestrates one performer-vs-reference scoring
// lifetime: it owns the stream adapter and DTW state for the pairing,
// fuses the three subscores into a graded result, and implements the
// in-band reset protocol.
//
// A Controller never lets a failure escape: every entry point converts
// panics and errors into a well-formed Miss result with ok=false. One
// Controller serves one session; concurrent sessions use disjoint
// instances so their sliding windows cannot contaminate each other.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kata/internal/adapters/stream"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/internal/domain/pose"
	"github.com/okian/kata/internal/domain/rhythm"
	"github.com/okian/kata/internal/domain/trajectory"
	"github.com/okian/kata/pkg/logger"
	"github.com/okian/kata/pkg/metrics"
)

// FusionWeights blends the three subscores into the final score.
type FusionWeights struct {
	Pose       float64
	Trajectory float64
	Rhythm     float64
}

// DefaultFusionWeights returns the standard blend: pose dominates,
// trajectory seconds, rhythm refines.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Pose: 0.5, Trajectory: 0.3, Rhythm: 0.2}
}

// InvalidTrajectoryScore is the neutral subscore used when trajectory
// features cannot be extracted for the current call.
const InvalidTrajectoryScore = 0.5

// Controller runs the scoring pipeline for one session.
type Controller struct {
	mu sync.Mutex

	id      string
	weights FusionWeights

	poser   *pose.Scorer
	dtw     *trajectory.SlidingDTW
	adapter *stream.Adapter

	logger logger.Logger
}

// Option applies a configuration option to the Controller.
type Option func(*controllerConfig)

type controllerConfig struct {
	window       int
	band         int
	weights      FusionWeights
	jointWeights map[string]float64
	boneJoints   map[string]string
	logger       logger.Logger
}

// WithWindowSize bounds both the trajectory history and the DTW window.
func WithWindowSize(w int) Option {
	return func(c *controllerConfig) {
		if w > 0 {
			c.window = w
		}
	}
}

// WithBand sets the DTW Sakoe-Chiba band radius.
func WithBand(b int) Option {
	return func(c *controllerConfig) {
		if b > 0 {
			c.band = b
		}
	}
}

// WithFusionWeights replaces the subscore blend.
func WithFusionWeights(w FusionWeights) Option {
	return func(c *controllerConfig) {
		if w.Pose >= 0 && w.Trajectory >= 0 && w.Rhythm >= 0 {
			c.weights = w
		}
	}
}

// WithJointWeights replaces the pose joint weight table.
func WithJointWeights(weights map[string]float64) Option {
	return func(c *controllerConfig) {
		if len(weights) > 0 {
			c.jointWeights = weights
		}
	}
}

// WithBoneJoints replaces the recognized bone-to-joint mapping of the
// stream adapter.
func WithBoneJoints(m map[string]string) Option {
	return func(c *controllerConfig) {
		if len(m) > 0 {
			c.boneJoints = m
		}
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *controllerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a session controller with configuration options.
func New(opts ...Option) *Controller {
	cfg := &controllerConfig{
		window:  trajectory.DefaultWindowSize,
		band:    trajectory.DefaultBand,
		weights: DefaultFusionWeights(),
		logger:  logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	poseOpts := []pose.Option{}
	if cfg.jointWeights != nil {
		poseOpts = append(poseOpts, pose.WithJointWeights(cfg.jointWeights))
	}
	adapterOpts := []stream.Option{stream.WithWindowSize(cfg.window)}
	if cfg.boneJoints != nil {
		adapterOpts = append(adapterOpts, stream.WithBoneJoints(cfg.boneJoints))
	}

	return &Controller{
		id:      uuid.NewString(),
		weights: cfg.weights,
		poser:   pose.NewScorer(poseOpts...),
		dtw: trajectory.NewSlidingDTW(
			trajectory.WithWindowSize(cfg.window),
			trajectory.WithBand(cfg.band),
		),
		adapter: stream.NewAdapter(adapterOpts...),
		logger:  cfg.logger,
	}
}

// ID returns the session's unique identifier.
func (c *Controller) ID() string {
	return c.id
}

// BufferLen returns the current DTW window fill, for stats surfaces.
func (c *Controller) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dtw.Len()
}

// Reset clears all session state: trajectory histories and DTW buffers.
// Callable at any time, independently of scoring.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.dtw.Reset()
	c.adapter.Reset()
	metrics.RecordSessionReset()
}

// Score runs the full pipeline on one performer/reference snapshot pair
// and returns a graded result. A reset request embedded in either input
// short-circuits: all state is cleared and an acknowledgment is returned
// without scoring. Failures never propagate past this boundary.
func (c *Controller) Score(player, ref model.MotionSnapshot) (result model.ScoreResult) {
	defer c.absorbPanic(&result)

	c.mu.Lock()
	defer c.mu.Unlock()

	if player.WantsReset() || ref.WantsReset() {
		c.resetLocked()
		return model.ResetAck()
	}
	return c.scoreLocked(player, ref)
}

// ScoreJSON is the direct-scoring entry for raw JSON payloads. Both inputs
// are shape-checked before scoring; malformed input produces a Miss result
// with ok=false rather than an error.
func (c *Controller) ScoreJSON(playerJSON, refJSON []byte) (result model.ScoreResult) {
	defer c.absorbPanic(&result)

	if err := validateSnapshotJSON(playerJSON); err != nil {
		return c.failure(fmt.Errorf("player input: %w", err))
	}
	if err := validateSnapshotJSON(refJSON); err != nil {
		return c.failure(fmt.Errorf("reference input: %w", err))
	}

	var player, ref model.MotionSnapshot
	if err := json.Unmarshal(playerJSON, &player); err != nil {
		return c.failure(fmt.Errorf("player input: %w", err))
	}
	if err := json.Unmarshal(refJSON, &ref); err != nil {
		return c.failure(fmt.Errorf("reference input: %w", err))
	}

	return c.Score(player, ref)
}

// ScoreFrames is the raw-protocol entry: one bone-sample frame per stream.
// Both frames flow through the stream adapter to accumulate trajectory
// history, then are scored like direct snapshots. A reset command on
// either frame short-circuits.
func (c *Controller) ScoreFrames(playerFrame, refFrame model.RawFrame) (result model.ScoreResult) {
	defer c.absorbPanic(&result)

	c.mu.Lock()
	defer c.mu.Unlock()

	if playerFrame.WantsReset() || refFrame.WantsReset() {
		c.resetLocked()
		return model.ResetAck()
	}

	player, err := c.adapter.Adapt(stream.Performer, playerFrame)
	if err != nil {
		return c.failure(err)
	}
	ref, err := c.adapter.Adapt(stream.Reference, refFrame)
	if err != nil {
		return c.failure(err)
	}

	return c.scoreLocked(player, ref)
}

// scoreLocked computes the three subscores and fuses them. Caller holds
// the lock.
func (c *Controller) scoreLocked(player, ref model.MotionSnapshot) model.ScoreResult {
	start := time.Now()

	poseScore := c.poser.Score(player.Rotations, ref.Rotations)

	var (
		trajScore = InvalidTrajectoryScore
		trajValid bool
		dtwCost   *float64
	)
	playerFeat, playerOK := extractFeature(player)
	refFeat, refOK := extractFeature(ref)
	if playerOK && refOK {
		c.dtw.AddFrame(playerFeat, refFeat)
		cost := c.dtw.Compute()
		dtwCost = &cost
		trajScore = trajectory.Subscore(cost)
		trajValid = true
	}

	rhythmScore := rhythm.Score(rhythmSignal(player), rhythmSignal(ref))

	final := model.Clamp01(
		c.weights.Pose*poseScore +
			c.weights.Trajectory*trajScore +
			c.weights.Rhythm*rhythmScore,
	)
	grade := model.GradeFor(final)

	metrics.RecordFrameScored(string(grade))
	metrics.ObserveScoreLatency(time.Since(start).Seconds())

	return model.ScoreResult{
		Final:           final,
		Pose:            poseScore,
		Trajectory:      trajScore,
		Rhythm:          rhythmScore,
		Grade:           grade,
		OK:              true,
		TrajectoryValid: trajValid,
		DTWCost:         dtwCost,
	}
}

// failure converts an error into the zeroed Miss result and records it.
func (c *Controller) failure(err error) model.ScoreResult {
	metrics.RecordScoringError()
	c.logger.Warn(context.Background(), "scoring failed", logger.String("session", c.id), logger.Error(err))
	return model.FailureResult(err.Error())
}

// absorbPanic converts any panic escaping the pipeline into a well-formed
// failure result. The controller's contract is "always returns a result".
func (c *Controller) absorbPanic(result *model.ScoreResult) {
	if r := recover(); r != nil {
		*result = c.failure(fmt.Errorf("scoring panic: %v", r))
	}
}

// extractFeature concatenates the latest left- and right-hand positions of
// a snapshot into one trajectory feature vector. Both effectors must have
// a non-empty history with a finite latest sample; otherwise the snapshot
// has no usable trajectory feature for this call.
func extractFeature(snap model.MotionSnapshot) ([]float64, bool) {
	lh, ok := latestPosition(snap.Trajectories, "LeftHand")
	if !ok {
		return nil, false
	}
	rh, ok := latestPosition(snap.Trajectories, "RightHand")
	if !ok {
		return nil, false
	}
	return []float64{lh[0], lh[1], lh[2], rh[0], rh[1], rh[2]}, true
}

// rhythmSignal selects the series the rhythm scorer compares: an explicit
// scalar signal when the snapshot carries one, otherwise the combined hand
// trajectory window, so the raw-protocol path gets a real rhythm subscore.
func rhythmSignal(snap model.MotionSnapshot) rhythm.Signal {
	if len(snap.RhythmSignal) > 0 {
		return rhythm.FromScalars(snap.RhythmSignal)
	}

	lh := snap.Trajectories["LeftHand"]
	rh := snap.Trajectories["RightHand"]
	n := len(lh)
	if len(rh) < n {
		n = len(rh)
	}
	if n == 0 {
		return nil
	}

	s := make(rhythm.Signal, n)
	for i := 0; i < n; i++ {
		s[i] = []float64{lh[i][0], lh[i][1], lh[i][2], rh[i][0], rh[i][1], rh[i][2]}
	}
	return s
}

func latestPosition(trajectories map[string][]model.Vec3, joint string) (model.Vec3, bool) {
	traj, ok := trajectories[joint]
	if !ok || len(traj) == 0 {
		return model.Vec3{}, false
	}
	last := traj[len(traj)-1]
	if !last.Finite() {
		return model.Vec3{}, false
	}
	return last, true
}
