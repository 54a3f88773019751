package tempo

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidTarget = errors.New("target bpm must be at least 1")
)
