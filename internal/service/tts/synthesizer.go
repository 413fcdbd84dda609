// Package tts defines the speech-synthesis surface for assistant replies.
package tts

import (
	"context"

	"ev-faq-dialogue-service/internal/models"
)

// Synthesizer converts an assistant reply to audio. Implementations
// return the full encoded clip; an empty clip means nothing to play.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error)
}

type disabled struct{}

func (disabled) Synthesize(context.Context, string, models.Language) ([]byte, error) {
	return nil, nil
}

// Disabled returns a Synthesizer that produces no audio. The dialogue
// pipeline runs text-only with it.
func Disabled() Synthesizer {
	return disabled{}
}
