package models

// Event type discriminators carried in the "type" field of every client
// message, ingress and egress.
const (
	EventTypeTranscription   = "transcription"
	EventTypeStatusUpdate    = "status_update"
	EventTypeTransferRequest = "transfer_request"
	EventTypeSessionClosed   = "session_closed"
)

// StatusType labels a status_update for client-side rendering.
const (
	StatusTypeSearching    = "searching"
	StatusTypeSynthesizing = "synthesizing"
	StatusTypeComplete     = "complete"
	StatusTypeError        = "error"
)

// TranscriptionEvent mirrors one transcript fragment to the client. The
// same shape is accepted on ingress for user speech: partials arrive with
// isFinal=false and are cumulative, the closing final carries isFinal=true.
type TranscriptionEvent struct {
	Type    string  `json:"type"`
	Role    Speaker `json:"role"`
	Text    string  `json:"text"`
	IsFinal bool    `json:"isFinal"`
	// Language may be empty on ingress; the gateway detects it from the text.
	Language Language `json:"language,omitempty"`
}

// StatusUpdateEvent tells the client what the agent is currently doing.
// Status carries display text in the session language; StatusType is the
// stable machine-readable label.
type StatusUpdateEvent struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	StatusType string `json:"status_type"`
}

// TransferRequestEvent asks the client to hand the caller to a human agent.
// Reason is forwarded verbatim from whatever triggered the transfer.
type TransferRequestEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// SessionClosedEvent is the single terminal notification emitted when a
// session tears down, regardless of which path initiated the teardown.
type SessionClosedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// NewTranscriptionEvent builds a transcription envelope, detecting the
// language when the caller did not supply one.
func NewTranscriptionEvent(role Speaker, text string, isFinal bool, lang Language) TranscriptionEvent {
	if lang == "" {
		lang = DetectLanguage(text)
	}
	return TranscriptionEvent{
		Type:     EventTypeTranscription,
		Role:     role,
		Text:     text,
		IsFinal:  isFinal,
		Language: lang,
	}
}
