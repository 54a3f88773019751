// Package tempo implements the BPM estimation state machine: interval
// capture, instantaneous BPM, rolling average, and accuracy scoring.
package tempo

import (
	"math"
	"time"

	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/internal/domain/scoring"
)

// Default estimator configuration constants.
const (
	defaultWindow      = 5
	defaultMinInterval = time.Millisecond
	millisPerMinute    = 60000
)

// Estimator accumulates tap instants and derives tempo values from the
// intervals between them. It is not safe for concurrent use; the owning
// service serializes taps through a single mutation point.
type Estimator struct {
	taps        int
	lastTap     time.Time
	history     []int
	target      int // 0 means unset
	window      int
	minInterval time.Duration
}

// New creates an Estimator with default configuration.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		window:      defaultWindow,
		minInterval: defaultMinInterval,
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RecordTap feeds one tap instant into the estimator and returns the derived
// values. Instants are expected to be non-decreasing across calls.
//
// The first tap only establishes the baseline: no instantaneous BPM exists
// for a single point in time. Later taps whose interval since the previous
// accepted tap falls below the minimum interval (including zero and negative
// intervals from clock adjustments) are rejected without touching any state,
// which keeps division by zero and negative BPM out of the pipeline.
func (e *Estimator) RecordTap(now time.Time) model.TapResult {
	res := model.TapResult{At: now}

	if e.taps == 0 {
		e.taps = 1
		e.lastTap = now
		res.Taps = 1
		return res
	}

	interval := now.Sub(e.lastTap)
	if interval < e.minInterval {
		res.Taps = e.taps
		res.Rejected = true
		return res
	}

	intervalMs := float64(interval) / float64(time.Millisecond)
	instant := int(math.Round(millisPerMinute / intervalMs))

	e.taps++
	e.lastTap = now
	e.history = append(e.history, instant)

	res.Taps = e.taps
	res.InstantBPM = &instant
	res.IntervalMillis = &intervalMs

	if avg, ok := e.rollingAverage(); ok {
		res.RollingAverage = &avg
	}

	if e.target > 0 && instant != 0 {
		acc := scoring.Accuracy(e.target, instant)
		res.Accuracy = &acc
	}

	return res
}

// rollingAverage computes the mean of the trailing window. It is defined
// only once the history has grown past the window size, so the first
// window-many samples report no average.
func (e *Estimator) rollingAverage() (int, bool) {
	if len(e.history) <= e.window {
		return 0, false
	}
	tail := e.history[len(e.history)-e.window:]
	sum := 0
	for _, bpm := range tail {
		sum += bpm
	}
	return int(math.Round(float64(sum) / float64(e.window))), true
}

// SetTarget replaces the target BPM used for accuracy scoring.
// Values below 1 are rejected.
func (e *Estimator) SetTarget(bpm int) error {
	if bpm < 1 {
		return ErrInvalidTarget
	}
	e.target = bpm
	return nil
}

// ClearTarget removes the target; subsequent taps carry no accuracy score.
func (e *Estimator) ClearTarget() {
	e.target = 0
}

// Target returns the configured target BPM and whether one is set.
func (e *Estimator) Target() (int, bool) {
	return e.target, e.target > 0
}

// Taps returns the number of accepted taps since the last reset.
func (e *Estimator) Taps() int {
	return e.taps
}

// History returns a copy of the recorded BPM samples, oldest first.
func (e *Estimator) History() []int {
	out := make([]int, len(e.history))
	copy(out, e.history)
	return out
}

// Window returns the rolling-average window size.
func (e *Estimator) Window() int {
	return e.window
}

// Last returns the most recent derived values without consuming a tap:
// the latest instantaneous BPM, the rolling average, and the accuracy
// score, each with a presence flag folded into the nil pointer.
func (e *Estimator) Last() (instant, rolling, accuracy *int) {
	if len(e.history) == 0 {
		return nil, nil, nil
	}
	last := e.history[len(e.history)-1]
	instant = &last
	if avg, ok := e.rollingAverage(); ok {
		rolling = &avg
	}
	if e.target > 0 && last != 0 {
		acc := scoring.Accuracy(e.target, last)
		accuracy = &acc
	}
	return instant, rolling, accuracy
}

// Reset restores the estimator to its initial zero state. Idempotent.
// The target is cleared as well; the owning service also clears the
// preference store so the two stay in step.
func (e *Estimator) Reset() {
	e.taps = 0
	e.lastTap = time.Time{}
	e.history = nil
	e.target = 0
}
