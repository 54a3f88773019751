// Package tempo implements the BPM estimation state machine.
package tempo

import "time"

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithWindow sets the rolling-average window size.
func WithWindow(size int) Option {
	return func(e *Estimator) {
		if size > 0 {
			e.window = size
		}
	}
}

// WithMinInterval sets the shortest interval between taps the estimator
// accepts. Taps arriving faster are rejected rather than producing a
// near-infinite BPM.
func WithMinInterval(d time.Duration) Option {
	return func(e *Estimator) {
		if d > 0 {
			e.minInterval = d
		}
	}
}

// WithTarget sets the initial target BPM. Values below 1 are ignored.
func WithTarget(bpm int) Option {
	return func(e *Estimator) {
		if bpm >= 1 {
			e.target = bpm
		}
	}
}
