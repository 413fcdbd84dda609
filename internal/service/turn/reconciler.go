package turn

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/logging"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

// ErrReconcilerClosed is returned for events arriving after Close.
var ErrReconcilerClosed = errors.New("turn reconciler is closed")

// Listener receives reconciler emissions. Callbacks run on the event's
// goroutine while the session lock is held: implementations must return
// quickly and must not re-enter the reconciler synchronously. Slow work
// (retrieval, generation) belongs on a separate goroutine.
type Listener interface {
	// OnPartialUpdated fires when a speaker's pending text changes.
	OnPartialUpdated(speaker models.Speaker, text string)

	// OnUtteranceFinalized fires when an utterance is appended to the
	// transcript.
	OnUtteranceFinalized(utt models.FinalizedUtterance)
}

// Reconciler ingests the transcription event stream of one session and
// maintains its transcript. Events for the same speaker are applied in
// arrival order; the user and assistant substreams are independent and
// may interleave freely. applyFinal is the only path that appends to the
// transcript.
type Reconciler struct {
	mu          sync.Mutex
	sessionId   string
	slots       map[models.Speaker]*Slot
	transcript  []models.FinalizedUtterance
	turnIds     *Generator
	currentTurn string
	listeners   []Listener
	closed      bool

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewReconciler creates a Reconciler for one session.
func NewReconciler(sessionId string) *Reconciler {
	return &Reconciler{
		sessionId: sessionId,
		slots: map[models.Speaker]*Slot{
			models.SpeakerUser:      {},
			models.SpeakerAssistant: {},
		},
		turnIds:     NewGenerator(),
		currentTurn: Zero(sessionId),
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithSession(sessionId),
	}
}

// AddListener registers a listener for emissions.
func (r *Reconciler) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Apply ingests one transcription event.
func (r *Reconciler) Apply(ev models.TranscriptionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrReconcilerClosed
	}

	slot, ok := r.slots[ev.Role]
	if !ok {
		slot = &Slot{}
		r.slots[ev.Role] = slot
	}

	if ev.IsFinal {
		r.applyFinal(slot, ev)
	} else {
		r.applyPartial(slot, ev)
	}

	return nil
}

func (r *Reconciler) applyPartial(slot *Slot, ev models.TranscriptionEvent) {
	if !slot.SetPartial(ev.Text) {
		// Silence > bad data: degenerate empty partials change nothing.
		r.metrics.RecordEmptyPartialIgnored()
		return
	}

	r.metrics.RecordPartialUpdate(string(ev.Role))

	for _, l := range r.listeners {
		l.OnPartialUpdated(ev.Role, ev.Text)
	}
}

func (r *Reconciler) applyFinal(slot *Slot, ev models.TranscriptionEvent) {
	// The final's own text is authoritative; whatever the slot held is
	// discarded, and a final without a preceding partial is fine.
	slot.Finalize()

	lang := ev.Language
	if lang == "" {
		lang = models.DetectLanguage(ev.Text)
	}

	// A user final opens a new turn; the assistant's reply stays on the
	// turn it answers.
	if ev.Role == models.SpeakerUser {
		r.currentTurn = r.turnIds.Next(r.sessionId)
	}

	utt := models.FinalizedUtterance{
		SessionID: r.sessionId,
		TurnID:    r.currentTurn,
		Speaker:   ev.Role,
		Language:  lang,
		Text:      ev.Text,
		Timestamp: time.Now().UnixMilli(),
	}

	r.transcript = append(r.transcript, utt)
	r.metrics.RecordUtteranceFinalized(string(ev.Role))

	r.log.Debug().
		Str("turnId", utt.TurnID).
		Str("speaker", string(utt.Speaker)).
		Str("language", string(utt.Language)).
		Msg("utterance finalized")

	for _, l := range r.listeners {
		l.OnUtteranceFinalized(utt)
	}
}

// Close stops event intake. Later events are rejected with
// ErrReconcilerClosed. Idempotent.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Transcript returns a copy of the finalized utterances in append order.
func (r *Reconciler) Transcript() []models.FinalizedUtterance {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.FinalizedUtterance, len(r.transcript))
	copy(out, r.transcript)
	return out
}

// Pending returns a speaker's pending partial text, empty when idle.
func (r *Reconciler) Pending(speaker models.Speaker) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[speaker]
	if !ok {
		return ""
	}
	return slot.Text()
}

// SlotState returns the state of a speaker's slot.
func (r *Reconciler) SlotState(speaker models.Speaker) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[speaker]
	if !ok {
		return StateIdle
	}
	return slot.State()
}

// CurrentTurn returns the most recently assigned turn id.
func (r *Reconciler) CurrentTurn() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTurn
}
