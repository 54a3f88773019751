// Package service provides the core tempo session service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline/internal/adapters/prefs"
	"github.com/tapline/tapline/internal/domain/dedupe"
	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/internal/domain/tempo"
	"github.com/tapline/tapline/pkg/logger"
	"github.com/tapline/tapline/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWindowSize  = 5
	defaultMinInterval = time.Millisecond
	defaultDedupeSize  = 10000

	// snapshotHistoryTail bounds how much BPM history a snapshot carries
	// for display; the estimator keeps the full sequence.
	snapshotHistoryTail = 32
)

// Sink receives every state-changing update: each accepted or rejected tap,
// target and preference changes, and resets.
type Sink interface {
	Publish(ctx context.Context, update model.Update)
}

// Service owns the estimator behind a single mutation point so concurrent
// tap sources (HTTP handlers, the live dashboard, CLI posts) preserve the
// sequential history/count invariant.
type Service struct {
	mu sync.Mutex

	// Core components
	estimator *tempo.Estimator
	deduper   dedupe.Deduper
	prefs     prefs.Store

	// Configuration
	prefsPath   string
	windowSize  int
	minInterval time.Duration
	dedupeSize  int
	clock       func() time.Time

	// Session state
	sessionID    string
	startedAt    time.Time
	showAccuracy bool

	// State
	started   bool
	ownsPrefs bool

	sinks []Sink

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock that stamps taps arriving without an instant.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPrefs injects a preference store. When set, the service does not open
// (or close) its own store.
func WithPrefs(store prefs.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.prefs = store
		}
	}
}

// WithPrefsPath sets the SQLite path for the preference store the service
// opens at Start. An empty path selects the in-memory store.
func WithPrefsPath(path string) Option {
	return func(s *Service) {
		s.prefsPath = path
	}
}

// WithWindowSize sets the rolling-average window size.
func WithWindowSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.windowSize = size
		}
	}
}

// WithMinInterval sets the shortest accepted interval between taps.
func WithMinInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.minInterval = d
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSink registers a sink for session updates.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		windowSize:  defaultWindowSize,
		minInterval: defaultMinInterval,
		dedupeSize:  defaultDedupeSize,
		clock:       time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the preference store, loads the persisted settings, and builds
// the estimator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting tempo service...")

	if s.prefs == nil {
		store, err := openStore(s.prefsPath)
		if err != nil {
			return fmt.Errorf("%w: %w", prefs.ErrOpenStore, err)
		}
		s.prefs = store
		s.ownsPrefs = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	// Absent or malformed preferences leave the defaults in place.
	opts := []tempo.Option{
		tempo.WithWindow(s.windowSize),
		tempo.WithMinInterval(s.minInterval),
	}
	if target, ok := prefs.TargetBPM(ctx, s.prefs); ok {
		opts = append(opts, tempo.WithTarget(target))
		metrics.UpdateTargetBPM(target)
	}
	s.estimator = tempo.New(opts...)
	s.showAccuracy = prefs.ShowAccuracy(ctx, s.prefs)

	s.sessionID = uuid.New().String()
	s.startedAt = s.clock()
	s.started = true

	s.logger.Info(ctx, "tempo service started",
		logger.String("session", s.sessionID),
		logger.Int("window", s.windowSize),
		logger.Duration("minInterval", s.minInterval),
		logger.Bool("showAccuracy", s.showAccuracy),
	)

	return nil
}

func openStore(path string) (prefs.Store, error) {
	if path == "" {
		return prefs.NewMemoryStore(), nil
	}
	return prefs.Open(path)
}

// Stop closes the preference store if the service opened it. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping tempo service...")

	if s.ownsPrefs && s.prefs != nil {
		if err := s.prefs.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing preference store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "tempo service stopped")
}

// Tap feeds one tap through dedupe and the estimator. The second return is
// true when the tap's event ID was already seen; duplicates never reach the
// estimator.
func (s *Service) Tap(ctx context.Context, tap model.Tap) (model.TapResult, bool, error) {
	if !s.isStarted() {
		return model.TapResult{}, false, ErrNotStarted
	}

	if tap.EventID != "" && s.deduper.SeenAndRecord(ctx, tap.EventID) {
		s.logger.Debug(ctx, "duplicate tap ignored", logger.String("eventID", tap.EventID))
		metrics.RecordTapDuplicate()
		return model.TapResult{}, true, nil
	}

	at := tap.At
	if at.IsZero() {
		at = s.clock()
	}

	s.mu.Lock()
	res := s.estimator.RecordTap(at)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.recordTapMetrics(res)
	s.logger.Debug(ctx, "tap recorded",
		logger.String("source", string(tap.Source)),
		logger.Int("taps", res.Taps),
		logger.Bool("rejected", res.Rejected),
	)

	s.publish(ctx, model.Update{Result: &res, Snapshot: snap})
	return res, false, nil
}

func (s *Service) recordTapMetrics(res model.TapResult) {
	if res.Rejected {
		metrics.RecordTapRejected()
		return
	}
	metrics.RecordTapAccepted()
	metrics.UpdateSessionTaps(res.Taps)
	if res.IntervalMillis != nil {
		metrics.RecordTapInterval(*res.IntervalMillis)
	}
	if res.InstantBPM != nil {
		metrics.UpdateInstantBPM(*res.InstantBPM)
	}
	if res.RollingAverage != nil {
		metrics.UpdateRollingBPM(*res.RollingAverage)
	}
	if res.Accuracy != nil {
		metrics.UpdateAccuracyScore(*res.Accuracy)
	}
}

// SetTarget validates and replaces the target BPM, writing it through to the
// preference store.
func (s *Service) SetTarget(ctx context.Context, bpm int) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	s.mu.Lock()
	if err := s.estimator.SetTarget(bpm); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := prefs.SetTargetBPM(ctx, s.prefs, bpm); err != nil {
		s.logger.Warn(ctx, "persisting target bpm failed", logger.Error(err))
	}
	metrics.RecordSettingsWrite()
	metrics.UpdateTargetBPM(bpm)

	s.publish(ctx, model.Update{Snapshot: snap})
	return nil
}

// ClearTarget removes the target; accuracy is no longer computed.
func (s *Service) ClearTarget(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	s.mu.Lock()
	s.estimator.ClearTarget()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.prefs.Delete(ctx, prefs.KeyTargetBPM); err != nil {
		s.logger.Warn(ctx, "clearing target bpm failed", logger.Error(err))
	}
	metrics.RecordSettingsWrite()
	metrics.UpdateTargetBPM(0)

	s.publish(ctx, model.Update{Snapshot: snap})
	return nil
}

// SetShowAccuracy persists the accuracy-visibility preference. The flag
// governs presentation only; accuracy values are still computed whenever a
// target is configured.
func (s *Service) SetShowAccuracy(ctx context.Context, show bool) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	s.mu.Lock()
	s.showAccuracy = show
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := prefs.SetShowAccuracy(ctx, s.prefs, show); err != nil {
		s.logger.Warn(ctx, "persisting accuracy visibility failed", logger.Error(err))
	}
	metrics.RecordSettingsWrite()

	s.publish(ctx, model.Update{Snapshot: snap})
	return nil
}

// Reset restores the estimator to its zero state, clears the whole
// preference store, and starts a fresh session. Idempotent.
func (s *Service) Reset(ctx context.Context) (model.Snapshot, error) {
	if !s.isStarted() {
		return model.Snapshot{}, ErrNotStarted
	}

	s.mu.Lock()
	s.estimator.Reset()
	s.showAccuracy = false
	s.sessionID = uuid.New().String()
	s.startedAt = s.clock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.deduper.Reset(ctx)
	if err := s.prefs.Clear(ctx); err != nil {
		s.logger.Warn(ctx, "clearing preference store failed", logger.Error(err))
	}

	metrics.RecordSessionReset()
	metrics.UpdateSessionTaps(0)
	metrics.UpdateInstantBPM(0)
	metrics.UpdateRollingBPM(0)
	metrics.UpdateTargetBPM(0)
	metrics.UpdateAccuracyScore(0)

	s.logger.Info(ctx, "session reset", logger.String("session", snap.SessionID))

	s.publish(ctx, model.Update{Snapshot: snap})
	return snap, nil
}

// Snapshot returns the current session view.
func (s *Service) Snapshot(ctx context.Context) model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a snapshot. Callers hold s.mu.
func (s *Service) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		SessionID:    s.sessionID,
		ShowAccuracy: s.showAccuracy,
		StartedAt:    s.startedAt,
	}
	if s.estimator == nil {
		return snap
	}

	snap.Taps = s.estimator.Taps()
	snap.InstantBPM, snap.RollingAverage, snap.Accuracy = s.estimator.Last()
	if target, ok := s.estimator.Target(); ok {
		snap.TargetBPM = &target
	}

	history := s.estimator.History()
	if len(history) > snapshotHistoryTail {
		history = history[len(history)-snapshotHistoryTail:]
	}
	snap.History = history

	return snap
}

// SessionTaps reports the number of taps accepted in the current session.
func (s *Service) SessionTaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.estimator == nil {
		return 0
	}
	return s.estimator.Taps()
}

func (s *Service) publish(ctx context.Context, update model.Update) {
	for _, sink := range s.sinks {
		sink.Publish(ctx, update)
	}
}

func (s *Service) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
