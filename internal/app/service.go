// Package service provides the core business service that implements
// the dependencies required by the HTTP API and runs the UDP scoring
// pipeline.
package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/okian/kata/internal/adapters/http/api"
	"github.com/okian/kata/internal/adapters/ingest"
	"github.com/okian/kata/internal/adapters/registry"
	"github.com/okian/kata/internal/adapters/stream"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/internal/domain/session"
	"github.com/okian/kata/pkg/logger"
	"github.com/okian/kata/pkg/metrics"
)

// Service owns the full scoring pipeline: two UDP listeners feeding a
// bounded packet queue, a runner draining it into the default session,
// and a registry of additional HTTP-created sessions. It implements
// api.Dependencies and api.StatsProvider.
type Service struct {
	mu sync.RWMutex

	// Core components
	queue     *ingest.InMemoryQueue
	performer *ingest.Listener
	reference *ingest.Listener
	runner    *ingest.Runner
	sessions  *registry.Registry
	hub       *api.Hub

	// Configuration
	performerPort int
	referencePort int
	queueSize     int
	dedupeSize    int
	windowSize    int
	band          int
	fusionWeights session.FusionWeights
	jointWeights  map[string]float64

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Latest pipeline result. Guarded separately from mu: the sink runs
	// on the runner goroutine, which Stop waits on while holding mu.
	resMu      sync.RWMutex
	haveResult bool
	latest     model.ScoreResult

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPorts sets the UDP ports for the performer and reference streams.
// Port 0 binds an ephemeral port.
func WithPorts(performer, reference int) Option {
	return func(s *Service) {
		if performer >= 0 {
			s.performerPort = performer
		}
		if reference >= 0 {
			s.referencePort = reference
		}
	}
}

// WithQueueSize sets the maximum size of the packet queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the duplicate-frame cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithWindowSize bounds the trajectory history and DTW window of every
// session the service creates.
func WithWindowSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.windowSize = size
		}
	}
}

// WithBand sets the Sakoe-Chiba band of every session.
func WithBand(band int) Option {
	return func(s *Service) {
		if band > 0 {
			s.band = band
		}
	}
}

// WithFusionWeights sets the subscore blend of every session.
func WithFusionWeights(w session.FusionWeights) Option {
	return func(s *Service) {
		s.fusionWeights = w
	}
}

// WithJointWeights sets the per-joint pose weights of every session.
func WithJointWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.jointWeights = weights
		}
	}
}

// WithHub attaches a live-broadcast hub; every pipeline result is pushed
// to its clients.
func WithHub(hub *api.Hub) Option {
	return func(s *Service) {
		s.hub = hub
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		performerPort: 12351,
		referencePort: 12352,
		queueSize:     4096,
		dedupeSize:    10000,
		windowSize:    stream.DefaultWindowSize,
		band:          8,
		fusionWeights: session.DefaultFusionWeights(),
		logger:        nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// newSession builds a session controller with the service's tuning.
func (s *Service) newSession() *session.Controller {
	opts := []session.Option{
		session.WithWindowSize(s.windowSize),
		session.WithBand(s.band),
		session.WithFusionWeights(s.fusionWeights),
	}
	if s.jointWeights != nil {
		opts = append(opts, session.WithJointWeights(s.jointWeights))
	}
	return session.New(opts...)
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.sessions = registry.New(s.newSession)
	s.queue = ingest.NewInMemoryQueue(ingest.WithQueueCapacity(s.queueSize))

	var err error
	s.performer, err = ingest.NewListener(stream.Performer, s.performerPort, s.queue,
		ingest.WithDedupeSize(s.dedupeSize))
	if err != nil {
		return fmt.Errorf("performer listener: %w", err)
	}
	s.reference, err = ingest.NewListener(stream.Reference, s.referencePort, s.queue,
		ingest.WithDedupeSize(s.dedupeSize))
	if err != nil {
		_ = s.performer.Close()
		return fmt.Errorf("reference listener: %w", err)
	}

	s.runner = ingest.NewRunner(s.queue, s.sessions.Default(),
		ingest.WithSink(s.publishResult))

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(3)
	go func() { defer s.wg.Done(); s.performer.Run(runCtx) }()
	go func() { defer s.wg.Done(); s.reference.Run(runCtx) }()
	go func() { defer s.wg.Done(); s.runner.Run(runCtx) }()

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("performer", s.performer.Addr().String()),
		logger.String("reference", s.reference.Addr().String()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("windowSize", s.windowSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")

	// Canceling the run context closes both UDP sockets; closing the
	// queue lets the runner drain and exit.
	s.cancel()
	_ = s.queue.Close()
	s.wg.Wait()

	if s.hub != nil {
		s.hub.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

// PerformerAddr returns the bound performer UDP address. Only valid after
// Start; useful when binding ephemeral ports.
func (s *Service) PerformerAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.performer == nil {
		return nil
	}
	return s.performer.Addr()
}

// ReferenceAddr returns the bound reference UDP address. Only valid after
// Start.
func (s *Service) ReferenceAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reference == nil {
		return nil
	}
	return s.reference.Addr()
}

// publishResult is the runner's sink: it stores the latest result and
// pushes it to live clients.
func (s *Service) publishResult(result model.ScoreResult) {
	s.resMu.Lock()
	s.latest = result
	s.haveResult = true
	s.resMu.Unlock()

	if s.hub != nil {
		s.hub.Broadcast(result)
	}
}

// ScoreJSON runs the direct-scoring entry of the addressed session.
func (s *Service) ScoreJSON(ctx context.Context, sessionID string, player, ref []byte) (model.ScoreResult, error) {
	ctrl, ok := s.sessions.Get(ctx, sessionID)
	if !ok {
		return model.ScoreResult{}, fmt.Errorf("session %q: %w", sessionID, api.ErrSessionNotFound)
	}
	return ctrl.ScoreJSON(player, ref), nil
}

// ResetSession clears all state of the addressed session.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	ctrl, ok := s.sessions.Get(ctx, sessionID)
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, api.ErrSessionNotFound)
	}
	ctrl.Reset()
	return nil
}

// CreateSession registers a new isolated session and returns its id.
func (s *Service) CreateSession(ctx context.Context) string {
	return s.sessions.Create(ctx).ID()
}

// RemoveSession drops a session. The default session cannot be removed.
func (s *Service) RemoveSession(ctx context.Context, sessionID string) bool {
	return s.sessions.Remove(ctx, sessionID)
}

// LatestResult returns the most recent UDP-pipeline result, if any.
func (s *Service) LatestResult(_ context.Context) (model.ScoreResult, bool) {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	return s.latest, s.haveResult
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"windowSize": s.windowSize,
		"band":       s.band,
	}

	if s.started {
		queueLen := s.queue.Len()
		def := s.sessions.Default()

		stats["queueLength"] = queueLen
		stats["sessions"] = s.sessions.Len()
		stats["windowFill"] = def.BufferLen()
		stats["performerSkeletonBones"] = s.performer.SkeletonBoneCount()
		stats["referenceSkeletonBones"] = s.reference.SkeletonBoneCount()
		if n, at := s.performer.SkeletonInfo(); n > 0 {
			stats["performerSkeletonAt"] = at.UTC().Format(time.RFC3339Nano)
		}
		if n, at := s.reference.SkeletonInfo(); n > 0 {
			stats["referenceSkeletonAt"] = at.UTC().Format(time.RFC3339Nano)
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateDTWWindowFill(def.BufferLen())
	}

	return stats
}
