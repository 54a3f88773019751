package httpapi

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrInvalidTarget = errors.New("target bpm must be at least 1")
	ErrInternal      = errors.New("internal error")
)

// NewKind returns an op-prefixed error of the given kind.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind ties a cause to a sentinel kind under the operation name, so
// callers can errors.Is on the kind while the cause stays readable.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
