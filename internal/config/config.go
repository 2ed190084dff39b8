// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PerformerPort and ReferencePort are the UDP ports the two capture
	// streams arrive on.
	PerformerPort int `koanf:"performer_port"`
	ReferencePort int `koanf:"reference_port"`

	// WindowSize bounds the sliding trajectory/DTW window per joint.
	WindowSize int `koanf:"window_size"`

	// Band is the Sakoe-Chiba band radius for trajectory alignment.
	Band int `koanf:"band"`

	// PacketQueueSize bounds the in-memory decoded-packet queue.
	PacketQueueSize int `koanf:"packet_queue_size"`

	// DedupeSize bounds the per-stream duplicate-frame cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PoseWeight, TrajectoryWeight, and RhythmWeight blend the subscores.
	PoseWeight       float64 `koanf:"pose_weight"`
	TrajectoryWeight float64 `koanf:"trajectory_weight"`
	RhythmWeight     float64 `koanf:"rhythm_weight"`

	// JointWeights maps joint names to their pose-score weights.
	JointWeights map[string]float64 `koanf:"joint_weights"`
}

// New creates a Config with defaults. The defaults target a single capture
// device pairing at 60 FPS on a development machine.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		PerformerPort:    12351,
		ReferencePort:    12352,
		WindowSize:       60,
		Band:             8,
		PacketQueueSize:  4096,
		DedupeSize:       10_000,
		PoseWeight:       0.5,
		TrajectoryWeight: 0.3,
		RhythmWeight:     0.2,
		JointWeights: map[string]float64{
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
		},
	}
}
