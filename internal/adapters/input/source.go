// Package input provides tap sources that feed the tempo service: an
// interactive reader-backed source and a deterministic synthetic generator.
package input

import (
	"context"

	"github.com/tapline/tapline/internal/domain/model"
)

// Source streams tap events until the source is exhausted or ctx is
// cancelled. emit is called once per tap; a non-nil error from emit stops
// the stream and is returned.
type Source interface {
	Stream(ctx context.Context, emit func(model.Tap) error) error
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, emit func(model.Tap) error) error

// Stream implements Source.
func (f SourceFunc) Stream(ctx context.Context, emit func(model.Tap) error) error {
	return f(ctx, emit)
}
