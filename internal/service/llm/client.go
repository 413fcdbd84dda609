// Package llm defines the chat-completion surface used to generate
// assistant replies.
package llm

import "context"

// Chat roles understood by the completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamCallback receives response text as it is generated. It is called
// with done=false for each content chunk and exactly once with done=true
// carrying the full accumulated reply.
type StreamCallback func(chunk string, done bool)

// Client generates a streamed assistant reply for a chat transcript.
// Implementations are stateless across calls; conversation history is
// the caller's to assemble.
type Client interface {
	Stream(ctx context.Context, messages []Message, cb StreamCallback) error
}
