// Package wsapi exposes the realtime dialogue surface: one WebSocket
// connection per session, JSON events in both directions and binary
// frames for synthesized audio on egress.
package wsapi

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ev-faq-dialogue-service/internal/config"
	"ev-faq-dialogue-service/internal/events"
	"ev-faq-dialogue-service/internal/observability/logging"
	"ev-faq-dialogue-service/internal/observability/metrics"
	"ev-faq-dialogue-service/internal/schema"
	"ev-faq-dialogue-service/internal/service/llm"
	"ev-faq-dialogue-service/internal/service/session"
	"ev-faq-dialogue-service/internal/service/tts"
)

// maxMessageBytes caps inbound frames. Ingress carries only short
// transcription JSON, never audio.
const maxMessageBytes = 64 * 1024

// Gateway upgrades dialogue connections and owns the live session
// registry. One websocket connection maps to exactly one session.
type Gateway struct {
	cfg       config.SessionConfig
	searcher  session.Searcher
	llm       llm.Client
	tts       tts.Synthesizer
	publisher *events.Publisher
	validator *schema.Validator
	upgrader  websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session.Controller
	draining bool

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Gateway with the shared per-session dependencies.
func New(cfg config.SessionConfig, searcher session.Searcher, llmClient llm.Client, synth tts.Synthesizer, publisher *events.Publisher) *Gateway {
	return &Gateway{
		cfg:       cfg,
		searcher:  searcher,
		llm:       llmClient,
		tts:       synth,
		publisher: publisher,
		validator: schema.New(),
		upgrader: websocket.Upgrader{
			// Clients are native apps and test harnesses, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session.Controller),
		metrics:  metrics.DefaultMetrics,
		log:      logging.WithComponent("gateway"),
	}
}

// HandleSession upgrades one connection and runs its read loop until the
// client disconnects or the session tears down.
func (g *Gateway) HandleSession(w http.ResponseWriter, r *http.Request) {
	if g.isDraining() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	sessionId := uuid.NewString()
	log := logging.WithSession(sessionId)

	sink := newConnSink(conn)
	ctrl := session.New(sessionId, g.cfg, g.searcher, g.llm, g.tts, g.publisher, sink)

	if !g.register(sessionId, ctrl) {
		// Drain began between the check and the upgrade.
		_ = sink.Close()
		return
	}
	defer g.unregister(sessionId)

	log.Info().Str("remoteAddr", r.RemoteAddr).Msg("session connected")
	ctrl.Start()

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			// A clean close frame is the client hanging up; anything
			// else is the transport giving out. Either way the session
			// may already be closed (farewell, shutdown) and this is a
			// no-op.
			reason := session.CloseReasonTransport
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				reason = session.CloseReasonClient
			}
			ctrl.Close(reason)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			ev, verr := g.validator.ValidateIngress(raw)
			if verr != nil {
				g.metrics.RecordIngressRejected()
				log.Debug().Err(verr).Msg("rejected ingress frame")
				continue
			}
			if aerr := ctrl.Apply(ev); aerr != nil {
				// The session closed under us; the sink already sent
				// the close frame.
				return
			}
		case websocket.BinaryMessage:
			g.metrics.RecordIngressRejected()
			log.Debug().Msg("binary ingress is not supported")
		}
	}
}

// Lookup returns the controller for a live session.
func (g *Gateway) Lookup(sessionId string) (*session.Controller, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ctrl, ok := g.sessions[sessionId]
	return ctrl, ok
}

// ActiveSessions returns the number of live sessions.
func (g *Gateway) ActiveSessions() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// SessionIDs returns the ids of all live sessions.
func (g *Gateway) SessionIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.sessions))
	for id := range g.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops accepting connections and closes every live session.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	g.draining = true
	ctrls := make([]*session.Controller, 0, len(g.sessions))
	for _, ctrl := range g.sessions {
		ctrls = append(ctrls, ctrl)
	}
	g.mu.Unlock()

	for _, ctrl := range ctrls {
		ctrl.Close(session.CloseReasonShutdown)
	}

	g.log.Info().Int("sessions", len(ctrls)).Msg("gateway drained")
}

func (g *Gateway) isDraining() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.draining
}

func (g *Gateway) register(sessionId string, ctrl *session.Controller) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.draining {
		return false
	}
	g.sessions[sessionId] = ctrl
	return true
}

func (g *Gateway) unregister(sessionId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionId)
}
