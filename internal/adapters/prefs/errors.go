package prefs

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrOpenStore = errors.New("open preference store failed")
)
