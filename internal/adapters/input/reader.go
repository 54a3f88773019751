package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline/internal/domain/model"
)

// ReaderSource turns newline-terminated reads into taps: each line (a key
// press followed by Enter on a cooked terminal) is one tap, stamped with the
// clock at the moment the line arrives. The stream ends on EOF.
type ReaderSource struct {
	r      io.Reader
	source model.Source
	clock  func() time.Time
}

// NewReaderSource creates a ReaderSource labelled with source.
func NewReaderSource(r io.Reader, source model.Source, opts ...ReaderOption) *ReaderSource {
	s := &ReaderSource{
		r:      r,
		source: source,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReaderOption applies a configuration option to the ReaderSource.
type ReaderOption func(*ReaderSource)

// WithReaderClock sets the clock used to stamp taps. Tests inject a
// deterministic clock here.
func WithReaderClock(clock func() time.Time) ReaderOption {
	return func(s *ReaderSource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Stream reads lines until EOF or ctx cancellation, emitting one tap per line.
func (s *ReaderSource) Stream(ctx context.Context, emit func(model.Tap) error) error {
	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tap := model.Tap{
			EventID: uuid.New().String(),
			Source:  s.source,
			At:      s.clock(),
		}
		if err := emit(tap); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read taps: %w", err)
	}
	return nil
}
