// Package elevenlabs implements speech synthesis against the ElevenLabs
// text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	// eleven_turbo_v2_5 handles both English and Hindi text, so one
	// voice serves the whole bilingual corpus.
	modelID = "eleven_turbo_v2_5"
)

// ttsRequest is the request body for /text-to-speech/{voice}.
type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// Client synthesizes speech through ElevenLabs.
type Client struct {
	baseURL    string
	voiceID    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New creates an ElevenLabs client.
func New(baseURL, voiceID, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		voiceID: voiceID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics.DefaultMetrics,
	}
}

// Synthesize converts text to MP3 audio in the given language.
func (c *Client) Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error) {
	start := time.Now()
	audio, err := c.synthesize(ctx, text, lang)
	c.metrics.RecordTTS(err, time.Since(start).Seconds())
	return audio, err
}

func (c *Client) synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	body, err := json.Marshal(ttsRequest{
		Text:         text,
		ModelID:      modelID,
		LanguageCode: string(lang),
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           1.0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_22050_32", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts: status %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return audio, nil
}
