// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"
)

// Source labels where a tap event originated. All sources are treated
// uniformly by the estimator; the label exists for transport and logging.
type Source string

// Known tap sources.
const (
	SourceKey       Source = "key"
	SourceClick     Source = "click"
	SourceContext   Source = "context"
	SourceSynthetic Source = "synthetic"
)

// Valid reports whether s is a known tap source.
func (s Source) Valid() bool {
	switch s {
	case SourceKey, SourceClick, SourceContext, SourceSynthetic:
		return true
	}
	return false
}

// Tap represents a single discrete tap event. Only the instant matters to
// the estimator; EventID serves transport-level idempotency.
type Tap struct {
	EventID string    // unique id for idempotency
	Source  Source    // where the tap came from
	At      time.Time // the tap instant
}

// TapResult is the per-tap output of the estimator. Pointer fields are nil
// when the corresponding value is undefined: the first tap yields no
// instantaneous BPM, the rolling average appears only once the trailing
// window has filled past its size, and accuracy requires a configured
// target and a nonzero instantaneous BPM.
type TapResult struct {
	Taps           int       `json:"taps"`
	InstantBPM     *int      `json:"instant_bpm,omitempty"`
	RollingAverage *int      `json:"rolling_average,omitempty"`
	Accuracy       *int      `json:"accuracy,omitempty"`
	IntervalMillis *float64  `json:"interval_ms,omitempty"`
	Rejected       bool      `json:"rejected,omitempty"`
	At             time.Time `json:"at"`
}

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	SessionID      string    `json:"session_id"`
	Taps           int       `json:"taps"`
	InstantBPM     *int      `json:"instant_bpm,omitempty"`
	RollingAverage *int      `json:"rolling_average,omitempty"`
	Accuracy       *int      `json:"accuracy,omitempty"`
	TargetBPM      *int      `json:"target_bpm,omitempty"`
	ShowAccuracy   bool      `json:"show_accuracy"`
	History        []int     `json:"history,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// Update is the envelope broadcast to sinks after every state change.
// Result is nil for changes that did not involve a tap (target or
// preference updates, resets).
type Update struct {
	Result   *TapResult `json:"result,omitempty"`
	Snapshot Snapshot   `json:"snapshot"`
}

// FormatBPM renders an instantaneous BPM for display: values below 1
// (an interval longer than two minutes rounds to zero) show as "<1".
func FormatBPM(bpm int) string {
	if bpm < 1 {
		return "<1"
	}
	return strconv.Itoa(bpm)
}
