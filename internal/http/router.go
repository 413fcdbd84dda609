package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ev-faq-dialogue-service/internal/app"
	"ev-faq-dialogue-service/internal/index"
	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/logging"
	"ev-faq-dialogue-service/internal/retrieval"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Retriever.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("index not loaded"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", application.Gateway.HandleSession)
		r.Get("/search", handleSearch(application))
		r.Post("/reindex", handleReindex(application))
		r.Get("/status", handleStatus(application))
		r.Post("/sessions/{sessionId}/transfer", handleTransfer(application))
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query   string                   `json:"query"`
	Results []models.RetrievalResult `json:"results"`
}

type reindexResponse struct {
	Entries    int   `json:"entries"`
	Rows       int   `json:"rows"`
	DurationMs int64 `json:"durationMs"`
}

type statusResponse struct {
	Status         string   `json:"status"`
	UptimeSeconds  int64    `json:"uptimeSeconds"`
	ActiveSessions int      `json:"activeSessions"`
	SessionIds     []string `json:"sessionIds"`
	IndexEntries   int      `json:"indexEntries"`
	IndexReady     bool     `json:"indexReady"`
	EmbedderOK     bool     `json:"embedderOk"`
}

// healthProber is implemented by embedding providers that can report
// backend reachability (the Ollama client); providers without a backend
// are always considered healthy.
type healthProber interface {
	IsHealthy(ctx context.Context) bool
}

type transferRequest struct {
	Reason string `json:"reason"`
}

type transferResponse struct {
	SessionId string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// handleSearch answers ad-hoc FAQ queries over the same retrieval path
// sessions use.
func handleSearch(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}

		k := application.Cfg.Session.TopK
		if raw := r.URL.Query().Get("k"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "k must be a positive integer")
				return
			}
			k = parsed
		}

		results, err := application.Retriever.Search(r.Context(), query, k)
		if errors.Is(err, retrieval.ErrIndexNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "index not loaded")
			return
		}
		if err != nil {
			log := logging.WithComponent("http")
			log.Warn().Err(err).Msg("search failed")
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		if results == nil {
			results = []models.RetrievalResult{}
		}

		writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
	}
}

// handleReindex rebuilds the index from the corpus file and publishes the
// new snapshot. The old snapshot keeps serving until the swap. Builds are
// single-flight: a rebuild while one is running is refused, not queued.
func handleReindex(application *app.Application) http.HandlerFunc {
	var building atomic.Bool
	return func(w http.ResponseWriter, r *http.Request) {
		if !building.CompareAndSwap(false, true) {
			writeError(w, http.StatusConflict, "a rebuild is already running")
			return
		}
		defer building.Store(false)

		log := logging.WithComponent("http")

		corpus, err := index.LoadCorpus(application.Cfg.Index.CorpusPath)
		if err != nil {
			log.Warn().Err(err).Str("path", application.Cfg.Index.CorpusPath).Msg("corpus load failed")
			writeError(w, http.StatusInternalServerError, "corpus load failed")
			return
		}

		start := time.Now()
		snap, err := application.Builder.Build(r.Context(), corpus)
		if err != nil {
			log.Warn().Err(err).Msg("index build failed")
			writeError(w, http.StatusInternalServerError, "index build failed")
			return
		}

		// Durability first: an index that cannot be persisted is not
		// published either.
		if err := application.Store.Save(snap); err != nil {
			log.Warn().Err(err).Msg("index save failed")
			writeError(w, http.StatusInternalServerError, "index save failed")
			return
		}
		application.Store.Publish(snap)

		log.Info().
			Int("entries", snap.Count()).
			Int("rows", len(snap.Rows)).
			Dur("duration", time.Since(start)).
			Msg("index rebuilt")

		writeJSON(w, http.StatusOK, reindexResponse{
			Entries:    snap.Count(),
			Rows:       len(snap.Rows),
			DurationMs: time.Since(start).Milliseconds(),
		})
	}
}

func handleStatus(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := application.Gateway.SessionIDs()
		if ids == nil {
			ids = []string{}
		}

		embedderOK := true
		if prober, ok := application.Embedder.(healthProber); ok {
			embedderOK = prober.IsHealthy(r.Context())
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Status:         "ok",
			UptimeSeconds:  int64(time.Since(application.StartupTime).Seconds()),
			ActiveSessions: application.Gateway.ActiveSessions(),
			SessionIds:     ids,
			IndexEntries:   application.Store.Count(),
			IndexReady:     application.Retriever.Ready(),
			EmbedderOK:     embedderOK,
		})
	}
}

// handleTransfer hands a live session to a human agent. The reason is
// forwarded to the client verbatim.
func handleTransfer(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionId := chi.URLParam(r, "sessionId")
		ctrl, ok := application.Gateway.Lookup(sessionId)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		var body transferRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "malformed body")
			return
		}
		reason := strings.TrimSpace(body.Reason)
		if reason == "" {
			reason = "operator requested transfer"
		}

		ctrl.RequestTransfer(reason)
		writeJSON(w, http.StatusAccepted, transferResponse{SessionId: sessionId, Reason: reason})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
