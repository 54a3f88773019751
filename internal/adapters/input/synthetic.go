package input

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline/internal/domain/model"
)

// SyntheticSource emits a fixed number of taps spaced by a fixed interval,
// useful for exercising a session without a human tapping. By default it
// paces in real time; immediate mode synthesizes the instants instead of
// sleeping, which keeps tests and local summaries fast.
type SyntheticSource struct {
	count     int
	interval  time.Duration
	immediate bool
	start     func() time.Time
}

// NewSyntheticSource creates a generator of count taps spaced by interval.
func NewSyntheticSource(count int, interval time.Duration, opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		count:    count,
		interval: interval,
		start:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyntheticOption applies a configuration option to the SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithImmediate emits all taps at once with synthesized instants rather than
// pacing in real time.
func WithImmediate() SyntheticOption {
	return func(s *SyntheticSource) {
		s.immediate = true
	}
}

// WithStart sets the clock supplying the first tap instant.
func WithStart(start func() time.Time) SyntheticOption {
	return func(s *SyntheticSource) {
		if start != nil {
			s.start = start
		}
	}
}

// Stream emits the configured taps, labelled as synthetic.
func (s *SyntheticSource) Stream(ctx context.Context, emit func(model.Tap) error) error {
	if s.immediate {
		return s.streamImmediate(ctx, emit)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First tap fires right away; the ticker paces the rest.
	for i := 0; i < s.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		tap := model.Tap{
			EventID: uuid.New().String(),
			Source:  model.SourceSynthetic,
			At:      time.Now(),
		}
		if err := emit(tap); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyntheticSource) streamImmediate(ctx context.Context, emit func(model.Tap) error) error {
	at := s.start()
	for i := 0; i < s.count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tap := model.Tap{
			EventID: uuid.New().String(),
			Source:  model.SourceSynthetic,
			At:      at,
		}
		if err := emit(tap); err != nil {
			return err
		}
		at = at.Add(s.interval)
	}
	return nil
}
