// Package schema validates inbound client messages before they reach the
// session pipeline. Malformed frames are rejected at the edge so downstream
// components only ever see well-formed events.
package schema

import (
	"encoding/json"
	"fmt"

	"ev-faq-dialogue-service/internal/models"
)

// MaxTextBytes caps the text field of a single transcription event. Real
// utterances are a sentence or two; anything near this limit is a
// misbehaving client.
const MaxTextBytes = 4096

// Envelope is the minimal shape every client frame must carry.
type Envelope struct {
	Type string `json:"type"`
}

// Validator checks inbound frames against the wire contract.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateIngress parses and validates one raw client frame. Only
// transcription events are accepted from clients; everything else is
// egress-only.
func (v *Validator) ValidateIngress(raw []byte) (models.TranscriptionEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.TranscriptionEvent{}, fmt.Errorf("malformed frame: %w", err)
	}

	if env.Type != models.EventTypeTranscription {
		return models.TranscriptionEvent{}, fmt.Errorf("unsupported ingress type %q", env.Type)
	}

	var ev models.TranscriptionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return models.TranscriptionEvent{}, fmt.Errorf("malformed transcription frame: %w", err)
	}

	if ev.Role != models.SpeakerUser && ev.Role != models.SpeakerAssistant {
		return models.TranscriptionEvent{}, fmt.Errorf("unknown role %q", ev.Role)
	}

	switch ev.Language {
	case "", models.LanguageEnglish, models.LanguageHindi:
	default:
		return models.TranscriptionEvent{}, fmt.Errorf("unsupported language %q", ev.Language)
	}

	if len(ev.Text) > MaxTextBytes {
		return models.TranscriptionEvent{}, fmt.Errorf("text exceeds %d bytes", MaxTextBytes)
	}

	return ev, nil
}
