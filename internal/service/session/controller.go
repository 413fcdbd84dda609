// Package session orchestrates one dialogue session: it wires transcript
// reconciliation to retrieval, generation, speech synthesis, and the
// client event channel.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ev-faq-dialogue-service/internal/config"
	"ev-faq-dialogue-service/internal/events"
	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/logging"
	"ev-faq-dialogue-service/internal/observability/metrics"
	"ev-faq-dialogue-service/internal/retrieval"
	"ev-faq-dialogue-service/internal/service/intent"
	"ev-faq-dialogue-service/internal/service/llm"
	"ev-faq-dialogue-service/internal/service/tts"
	"ev-faq-dialogue-service/internal/service/turn"
)

// ErrSessionClosed is returned for events arriving after teardown began.
var ErrSessionClosed = errors.New("session is closed")

// Close reasons recorded in metrics and the terminal session_closed event.
const (
	CloseReasonGoodbye   = "goodbye"
	CloseReasonClient    = "client_disconnect"
	CloseReasonTransport = "transport_error"
	CloseReasonShutdown  = "server_shutdown"
)

// Client-visible status texts. The UI relies on status_type for
// rendering; these strings are display copy.
const (
	statusSearching        = "Searching knowledge base..."
	statusGenerating       = "Generating response..."
	statusSearchFailed     = "Search failed"
	statusGenerationFailed = "Response generation failed"
)

// Spoken lines for scripted moments of the dialogue.
const (
	greetingLine   = "Hello! I'm your EV charging assistant. How can I help you today?"
	farewellLineEN = "Thank you for calling. Goodbye!"
	farewellLineHI = "कॉल करने के लिए धन्यवाद। अलविदा!"
	transferLine   = "I'm transferring your call to a human agent now. Please hold for a moment. They will be with you shortly."
)

// Searcher is the retrieval surface a session needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
}

// Sink delivers events to the session's client. Implementations must be
// safe for concurrent use; SendAudio carries encoded TTS audio.
type Sink interface {
	SendEvent(event any) error
	SendAudio(audio []byte) error
	Close() error
}

// Controller owns one session end to end. Ingress transcription events
// flow through Apply into the turn reconciler; finalized user utterances
// drive the retrieval+generation pipeline, whose output comes back
// through the same reconciler as assistant events. Teardown is
// idempotent: whichever of client disconnect, goodbye expiry, or server
// shutdown comes first wins, the rest are no-ops.
type Controller struct {
	sessionId   string
	cfg         config.SessionConfig
	searcher    Searcher
	llm         llm.Client
	tts         tts.Synthesizer
	publisher   *events.Publisher
	sink        Sink
	reconciler  *turn.Reconciler
	sequencer   *intent.Sequencer
	detector    *intent.Detector
	grace       *intent.GraceTimer
	connectedAt time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	turnCancel context.CancelFunc

	closed  atomic.Bool
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Controller for one session. Call Start once the sink is
// ready to receive events.
func New(sessionId string, cfg config.SessionConfig, searcher Searcher, llmClient llm.Client, synth tts.Synthesizer, publisher *events.Publisher, sink Sink) *Controller {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	c := &Controller{
		sessionId:   sessionId,
		cfg:         cfg,
		searcher:    searcher,
		llm:         llmClient,
		tts:         synth,
		publisher:   publisher,
		sink:        sink,
		reconciler:  turn.NewReconciler(sessionId),
		detector:    intent.NewDetector(cfg.ClosingPhrases),
		grace:       intent.NewGraceTimer(cfg.FarewellGrace),
		connectedAt: time.Now(),
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithSession(sessionId),
	}
	c.sequencer = intent.NewSequencer(c.emitStatus)
	c.reconciler.AddListener(c)
	return c
}

// Start begins the session: records it, announces it downstream, and
// speaks the greeting when configured.
func (c *Controller) Start() {
	c.metrics.RecordSessionStart()
	c.publisher.PublishSignal(c.baseCtx, events.SignalEvent{
		EventType: events.SignalSessionStarted,
		SessionID: c.sessionId,
	})
	c.log.Info().Msg("Session started")

	if c.cfg.Greeting {
		go c.speak(greetingLine, models.LanguageEnglish)
	}
}

// Apply ingests one validated transcription event from the client.
func (c *Controller) Apply(ev models.TranscriptionEvent) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	return c.reconciler.Apply(ev)
}

// Transcript returns the session transcript so far.
func (c *Controller) Transcript() []models.FinalizedUtterance {
	return c.reconciler.Transcript()
}

// SessionID returns the session identifier.
func (c *Controller) SessionID() string {
	return c.sessionId
}

// OnPartialUpdated mirrors pending text to the client.
func (c *Controller) OnPartialUpdated(speaker models.Speaker, text string) {
	c.sendEvent(models.NewTranscriptionEvent(speaker, text, false, ""))
}

// OnUtteranceFinalized mirrors the utterance to the client, publishes it
// downstream, and drives the dialogue for user speech. Runs under the
// reconciler's session lock; generation work is handed to a goroutine.
func (c *Controller) OnUtteranceFinalized(utt models.FinalizedUtterance) {
	c.sendEvent(models.TranscriptionEvent{
		Type:     models.EventTypeTranscription,
		Role:     utt.Speaker,
		Text:     utt.Text,
		IsFinal:  true,
		Language: utt.Language,
	})
	c.publisher.PublishUtterance(c.baseCtx, utt)

	if utt.Speaker == models.SpeakerUser {
		c.onUserFinal(utt)
	}
}

func (c *Controller) onUserFinal(utt models.FinalizedUtterance) {
	if utt.Text == "" {
		// Silence > bad data: nothing to answer.
		c.log.Debug().Str("turnId", utt.TurnID).Msg("Empty user final, skipping turn")
		return
	}

	if phrase, ok := c.detector.Match(utt.Text); ok {
		c.onFarewell(utt, phrase)
		return
	}

	turnCtx := c.beginTurn()
	go c.runTurn(turnCtx, utt)
}

func (c *Controller) onFarewell(utt models.FinalizedUtterance, phrase string) {
	// The user is done: stop any in-flight generation, say goodbye, and
	// close once the farewell has had time to play out.
	c.cancelTurn()

	if !c.grace.Arm(func() { c.Close(CloseReasonGoodbye) }) {
		return
	}

	c.log.Info().
		Str("turnId", utt.TurnID).
		Str("phrase", phrase).
		Dur("grace", c.cfg.FarewellGrace).
		Msg("Farewell detected, session closing after grace delay")

	c.publisher.PublishSignal(c.baseCtx, events.SignalEvent{
		EventType: events.SignalFarewellArmed,
		SessionID: c.sessionId,
		TurnID:    utt.TurnID,
		Reason:    phrase,
	})

	go c.speak(farewellLine(utt.Language), utt.Language)
}

// beginTurn replaces the in-flight generation turn, cancelling its
// predecessor: a new user utterance supersedes whatever the assistant
// was still answering.
func (c *Controller) beginTurn() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.turnCancel != nil {
		c.turnCancel()
	}
	turnCtx, cancel := context.WithCancel(c.baseCtx)
	c.turnCancel = cancel
	return turnCtx
}

func (c *Controller) cancelTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.turnCancel != nil {
		c.turnCancel()
		c.turnCancel = nil
	}
}

// runTurn executes one retrieval+generation turn. Superseded or
// closed-session turns stop silently; real failures surface as one
// error status and leave no assistant transcript entry, keeping the
// session usable for the next utterance.
func (c *Controller) runTurn(ctx context.Context, utt models.FinalizedUtterance) {
	log := logging.WithTurn(c.sessionId, utt.TurnID)

	c.sequencer.Searching(statusSearching)

	searchCtx, cancel := context.WithTimeout(ctx, c.cfg.RetrievalTimeout)
	results, err := c.searcher.Search(searchCtx, utt.Text, c.cfg.TopK)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Retrieval failed")
		c.sequencer.Error(statusSearchFailed)
		return
	}

	var contextMsg llm.Message
	if len(results) == 0 {
		log.Info().Msg("No FAQ matches, steering toward transfer offer")
		contextMsg = llm.NoContextMessage()
	} else {
		contextMsg = llm.ContextMessage(retrieval.BuildContext(results, utt.Language))
	}
	messages := llm.BuildMessages(utt.Language, c.reconciler.Transcript(), contextMsg)

	if ctx.Err() != nil {
		return
	}
	c.sequencer.Synthesizing(statusGenerating)

	genCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerationTimeout)
	defer cancel()

	var reply string
	var partial string
	err = c.llm.Stream(genCtx, messages, func(chunk string, done bool) {
		if done {
			reply = chunk
			return
		}
		if genCtx.Err() != nil || c.closed.Load() {
			return
		}
		// Chunks are deltas; the reconciler expects cumulative partials.
		partial += chunk
		c.reconciler.Apply(models.NewTranscriptionEvent(models.SpeakerAssistant, partial, false, utt.Language))
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Generation failed")
		c.sequencer.Error(statusGenerationFailed)
		return
	}

	if ctx.Err() != nil || c.closed.Load() {
		return
	}

	if reply == "" {
		log.Warn().Msg("Empty reply from model, finalizing nothing")
		c.sequencer.Complete()
		return
	}

	c.speak(reply, utt.Language)
	c.sequencer.Complete()
	log.Debug().Int("faqHits", len(results)).Msg("Turn completed")
}

// speak finalizes an assistant utterance through the reconciler and
// plays it out over TTS.
func (c *Controller) speak(text string, lang models.Language) {
	ev := models.NewTranscriptionEvent(models.SpeakerAssistant, text, true, lang)
	if err := c.reconciler.Apply(ev); err != nil {
		return
	}

	audio, err := c.tts.Synthesize(c.baseCtx, text, ev.Language)
	if err != nil {
		c.log.Warn().Err(err).Msg("TTS synthesis failed, reply is text-only")
		return
	}
	if len(audio) > 0 && !c.closed.Load() {
		if err := c.sink.SendAudio(audio); err != nil {
			c.log.Debug().Err(err).Msg("Failed to send audio to client")
		}
	}
}

// RequestTransfer hands the caller toward a human agent: one
// transfer_request event with the reason verbatim, plus a spoken
// hold notice. Each call delivers exactly one event.
func (c *Controller) RequestTransfer(reason string) {
	if c.closed.Load() {
		return
	}

	c.metrics.RecordTransferRequested()
	c.log.Info().Str("reason", reason).Msg("Transfer to human agent requested")

	c.sendEvent(models.TransferRequestEvent{
		Type:   models.EventTypeTransferRequest,
		Reason: reason,
	})
	c.publisher.PublishSignal(c.baseCtx, events.SignalEvent{
		EventType: events.SignalTransferRequested,
		SessionID: c.sessionId,
		Reason:    reason,
	})

	go c.speak(transferLine, models.LanguageEnglish)
}

// Close tears the session down: exactly one caller wins, the rest
// no-op. The winner cancels the grace timer and in-flight work, stops
// event intake, and sends the terminal session_closed notification.
func (c *Controller) Close(reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.grace.Cancel()
	c.baseCancel()
	c.cancelTurn()
	c.reconciler.Close()

	if err := c.sink.SendEvent(models.SessionClosedEvent{
		Type:   models.EventTypeSessionClosed,
		Reason: reason,
	}); err != nil {
		c.log.Debug().Err(err).Msg("Failed to send session_closed to client")
	}
	c.sink.Close()

	c.publisher.PublishSignal(context.Background(), events.SignalEvent{
		EventType: events.SignalSessionClosed,
		SessionID: c.sessionId,
		Reason:    reason,
	})

	duration := time.Since(c.connectedAt)
	c.metrics.RecordSessionEnd(reason, duration.Seconds())
	c.log.Info().
		Str("reason", reason).
		Dur("duration", duration).
		Msg("Session closed")
}

// Closed reports whether teardown has begun.
func (c *Controller) Closed() bool {
	return c.closed.Load()
}

func (c *Controller) emitStatus(ev models.StatusUpdateEvent) {
	if c.closed.Load() {
		return
	}
	c.sendEvent(ev)
	c.publisher.PublishSignal(c.baseCtx, events.SignalEvent{
		EventType: events.SignalStatusChanged,
		SessionID: c.sessionId,
		Status:    ev.StatusType,
	})
}

func (c *Controller) sendEvent(event any) {
	if err := c.sink.SendEvent(event); err != nil {
		c.log.Debug().Err(err).Msg("Failed to send event to client")
	}
}

func farewellLine(lang models.Language) string {
	if lang == models.LanguageHindi {
		return farewellLineHI
	}
	return farewellLineEN
}
