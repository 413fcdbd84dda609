package app

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	wsapi "ev-faq-dialogue-service/internal/api/ws"
	"ev-faq-dialogue-service/internal/config"
	"ev-faq-dialogue-service/internal/embeddings"
	"ev-faq-dialogue-service/internal/embeddings/mock"
	"ev-faq-dialogue-service/internal/embeddings/ollama"
	"ev-faq-dialogue-service/internal/events"
	"ev-faq-dialogue-service/internal/index"
	"ev-faq-dialogue-service/internal/observability/logging"
	"ev-faq-dialogue-service/internal/retrieval"
	"ev-faq-dialogue-service/internal/service/llm/openai"
	"ev-faq-dialogue-service/internal/service/tts"
	"ev-faq-dialogue-service/internal/service/tts/elevenlabs"
)

// Application holds process-wide state for the service: the wired
// component graph and everything the HTTP surface serves from.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Embedder  embeddings.Embedder
	Store     *index.Store
	Builder   *index.Builder
	Retriever *retrieval.Retriever
	Publisher *events.Publisher
	Gateway   *wsapi.Gateway
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	a.Embedder = newEmbedder(cfg.Embedding)
	a.Store = index.NewStore(cfg.Index.Path)
	a.Builder = index.NewBuilder(a.Embedder)
	a.Retriever = retrieval.New(a.Store, a.Embedder)

	a.Publisher = events.New(&events.Config{
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicSignal:     cfg.Kafka.TopicSignal,
		Principal:       cfg.Kafka.Principal,
		Enabled:         cfg.Kafka.Enabled,
	})

	llmClient := openai.New(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.Timeout)

	synth := tts.Disabled()
	if cfg.TTS.Enabled {
		synth = elevenlabs.New(cfg.TTS.BaseURL, cfg.TTS.VoiceID, cfg.TTS.APIKey, cfg.TTS.Timeout)
	}

	a.Gateway = wsapi.New(cfg.Session, a.Retriever, llmClient, synth, a.Publisher)

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().
		Str("embeddingProvider", cfg.Embedding.Provider).
		Bool("ttsEnabled", cfg.TTS.Enabled).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("EV FAQ dialogue service application created")
	return a
}

func newEmbedder(cfg config.EmbeddingConfig) embeddings.Embedder {
	if cfg.Provider == "mock" {
		return mock.New(16)
	}
	return ollama.New(cfg.BaseURL, cfg.Model, cfg.Timeout)
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	format := "json"
	if os.Getenv("ENV") == "dev" {
		format = "console"
	}

	logging.Init(logging.Config{
		Level:      a.Cfg.Observability.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
	})

	a.Logger = logging.Logger().With().
		Str("service", "ev-faq-dialogue-service").
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", a.Cfg.Observability.LogLevel).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start performs startup work required before serving traffic. A missing
// index is not fatal: the service starts cold and readiness reports
// unavailable until a reindex publishes a snapshot.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()

	if err := a.Store.LoadFromDisk(a.Embedder.Model()); err != nil {
		startLogger.Warn().
			Err(err).
			Str("path", a.Cfg.Index.Path).
			Msg("index not loaded; readiness fails until a reindex")
	} else {
		startLogger.Info().
			Int("entries", a.Store.Count()).
			Msg("index loaded")
	}

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("EV FAQ dialogue service starting")

	return nil
}

// Shutdown drains the gateway and releases external connections.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.Gateway.Shutdown()
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("kafka publisher close failed")
	}

	shutdownLogger.Info().Msg("EV FAQ dialogue service shutting down")
}
