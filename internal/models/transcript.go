// Package models defines the data structures shared across the dialogue
// pipeline: speakers, languages, finalized utterances and the JSON event
// envelopes exchanged with clients.
package models

// Speaker identifies which side of the conversation produced an utterance.
type Speaker string

const (
	// SpeakerUser is the human caller.
	SpeakerUser Speaker = "user"
	// SpeakerAssistant is the synthesized agent voice.
	SpeakerAssistant Speaker = "assistant"
)

// Language is a BCP-47-ish short code for utterance language.
type Language string

const (
	// LanguageEnglish covers Latin-script utterances.
	LanguageEnglish Language = "en"
	// LanguageHindi covers Devanagari-script utterances.
	LanguageHindi Language = "hi"
)

// DetectLanguage classifies text as Hindi when it contains at least one
// Devanagari code point (U+0900..U+097F), English otherwise. Mixed-script
// text leans Hindi so that the reply language matches the script the
// caller actually typed or spoke.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return LanguageHindi
		}
	}
	return LanguageEnglish
}

// FinalizedUtterance is one authoritative, completed utterance appended to
// the session transcript. Partial transcripts never become utterances; only
// final transcription events do.
type FinalizedUtterance struct {
	SessionID string   `json:"sessionId"`
	TurnID    string   `json:"turnId"`
	Speaker   Speaker  `json:"speaker"`
	Language  Language `json:"language"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}
