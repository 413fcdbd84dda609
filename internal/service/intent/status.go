package intent

import (
	"sync"

	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

// Sequencer tracks the active status of one session's generation turn
// and emits status_update events on transitions. At most one status is
// active at a time; starting a new one retires the previous
// (last-write-wins, no queue). Re-asserting the active status is
// suppressed so replays cost nothing on the wire.
//
// The emit callback runs under the sequencer lock and must not block or
// re-enter the sequencer.
type Sequencer struct {
	emit func(models.StatusUpdateEvent)

	mu     sync.Mutex
	active string

	metrics *metrics.Metrics
}

// NewSequencer creates a Sequencer that delivers events through emit.
// A nil emit drops events, which suits sessions without a client channel.
func NewSequencer(emit func(models.StatusUpdateEvent)) *Sequencer {
	if emit == nil {
		emit = func(models.StatusUpdateEvent) {}
	}
	return &Sequencer{
		emit:    emit,
		metrics: metrics.DefaultMetrics,
	}
}

// Searching marks the retrieval phase with the given display text.
func (s *Sequencer) Searching(status string) {
	s.transition(models.StatusTypeSearching, status)
}

// Synthesizing marks the generation phase with the given display text.
func (s *Sequencer) Synthesizing(status string) {
	s.transition(models.StatusTypeSynthesizing, status)
}

// Error surfaces a failed turn. The status_type marker lets the client
// render it apart from progress statuses.
func (s *Sequencer) Error(status string) {
	s.transition(models.StatusTypeError, status)
}

// Complete ends the turn's status lifecycle. Nothing is sent to the
// client; the terminal state only clears the active status so the next
// turn starts fresh.
func (s *Sequencer) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

// Active returns the active status type, empty when none.
func (s *Sequencer) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Sequencer) transition(statusType, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == statusType {
		s.metrics.RecordStatusSuppressed()
		return
	}

	s.active = statusType
	s.metrics.RecordStatusEmitted(statusType)
	s.emit(models.StatusUpdateEvent{
		Type:       models.EventTypeStatusUpdate,
		Status:     status,
		StatusType: statusType,
	})
}
