// Package config loads service configuration from environment variables
// with sensible defaults for local development. Invalid values fall back
// to defaults rather than failing startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Session       SessionConfig
	Embedding     EmbeddingConfig
	LLM           LLMConfig
	TTS           TTSConfig
	Index         IndexConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service and its listen ports.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
}

// SessionConfig tunes per-session dialogue behavior.
type SessionConfig struct {
	// TopK is how many FAQ hits are retrieved per user turn.
	TopK int
	// RetrievalTimeout bounds the index search for one turn.
	RetrievalTimeout time.Duration
	// GenerationTimeout bounds the LLM round trip for one turn.
	GenerationTimeout time.Duration
	// FarewellGrace is how long a detected goodbye stays cancellable
	// before the session closes.
	FarewellGrace time.Duration
	// ClosingPhrases are matched case-insensitively as substrings of
	// final user utterances to arm the farewell timer.
	ClosingPhrases []string
	// Greeting controls whether the assistant speaks first on connect.
	Greeting bool
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// LLMConfig points at the chat-completion backend.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// TTSConfig points at the speech-synthesis backend. Disabled by default;
// the session pipeline still runs end to end without audio.
type TTSConfig struct {
	Enabled bool
	BaseURL string
	VoiceID string
	APIKey  string
	Timeout time.Duration
}

// IndexConfig locates the FAQ corpus and the built vector index.
type IndexConfig struct {
	CorpusPath string
	Path       string
}

// KafkaConfig controls the transcript/signal firehose. When disabled,
// events are logged instead of published.
type KafkaConfig struct {
	Brokers         []string
	TopicTranscript string
	TopicSignal     string
	Principal       string
	Enabled         bool
}

// ObservabilityConfig tunes logging and the metrics endpoint.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort string
}

// Load reads configuration from the environment.
func Load() *Config {
	cfg := &Config{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-faq-dialogue"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		Session: SessionConfig{
			TopK:              envOrDefaultInt("SESSION_TOP_K", 3),
			RetrievalTimeout:  envOrDefaultDuration("SESSION_RETRIEVAL_TIMEOUT", 5*time.Second),
			GenerationTimeout: envOrDefaultDuration("SESSION_GENERATION_TIMEOUT", 30*time.Second),
			FarewellGrace:     envOrDefaultDuration("SESSION_FAREWELL_GRACE", 3*time.Second),
			ClosingPhrases:    envOrDefaultList("SESSION_CLOSING_PHRASES", []string{"thank you", "bye", "धन्यवाद", "अलविदा"}),
			Greeting:          envOrDefaultBool("SESSION_GREETING", true),
		},
		Embedding: EmbeddingConfig{
			Provider: envOrDefault("EMBEDDING_PROVIDER", "ollama"),
			BaseURL:  envOrDefault("EMBEDDING_BASE_URL", "http://localhost:11434"),
			Model:    envOrDefault("EMBEDDING_MODEL", "bge-m3"),
			Timeout:  envOrDefaultDuration("EMBEDDING_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			BaseURL: envOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:   envOrDefault("LLM_MODEL", "gpt-4o-mini"),
			APIKey:  envOrDefault("LLM_API_KEY", ""),
			Timeout: envOrDefaultDuration("LLM_TIMEOUT", 30*time.Second),
		},
		TTS: TTSConfig{
			Enabled: envOrDefaultBool("TTS_ENABLED", false),
			BaseURL: envOrDefault("TTS_BASE_URL", "https://api.elevenlabs.io"),
			VoiceID: envOrDefault("TTS_VOICE_ID", ""),
			APIKey:  envOrDefault("TTS_API_KEY", ""),
			Timeout: envOrDefaultDuration("TTS_TIMEOUT", 30*time.Second),
		},
		Index: IndexConfig{
			CorpusPath: envOrDefault("CORPUS_PATH", "data/faqs.json"),
			Path:       envOrDefault("INDEX_PATH", "data/faq_index.json"),
		},
		Kafka: KafkaConfig{
			Brokers:         envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "session.transcript.final"),
			TopicSignal:     envOrDefault("KAFKA_TOPIC_SIGNAL", "session.signal"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", ""),
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}

	// Kafka principal defaults to the service principal.
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
