// Package turn reconciles partial and final transcript events into a
// per-session transcript with per-speaker utterance slots.
package turn

import "fmt"

// State represents the lifecycle state of a speaker's utterance slot.
type State int

const (
	// StateIdle - No utterance in progress for this speaker.
	StateIdle State = iota
	// StateAccumulating - A partial transcript is pending.
	StateAccumulating
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAccumulating:
		return "ACCUMULATING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Slot holds the pending utterance for a single speaker. The reconciler
// serializes all access under its session mutex, so the slot itself does
// no locking.
//
// State transitions:
//
//	IDLE → ACCUMULATING → IDLE
//	  │         │
//	  │         └── SetPartial() ──→ overwrites, stays ACCUMULATING
//	  │
//	  └── Finalize() ──→ allowed from either state
//
// Rules:
//   - IDLE: no pending text; a final may still arrive directly (partials
//     are an optimization, not a precondition)
//   - ACCUMULATING: each partial overwrites the pending text wholesale
//     (speech recognizers send cumulative text per utterance, not deltas)
//   - Finalize always returns to IDLE and discards pending text; the
//     final event's own text is authoritative
type Slot struct {
	state State
	text  string
}

// State returns the current state.
func (s *Slot) State() State {
	return s.state
}

// Text returns the pending partial text, empty when idle.
func (s *Slot) Text() string {
	return s.text
}

// SetPartial stores cumulative partial text and moves to ACCUMULATING.
// Empty text is ignored and the slot is untouched; returns whether the
// partial was accepted.
func (s *Slot) SetPartial(text string) bool {
	if text == "" {
		return false
	}
	s.state = StateAccumulating
	s.text = text
	return true
}

// Finalize clears any pending text and returns the slot to IDLE.
func (s *Slot) Finalize() {
	s.state = StateIdle
	s.text = ""
}
