package events

import (
	"context"
	"testing"

	"ev-faq-dialogue-service/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerTranscript != nil {
				t.Error("expected nil transcript writer when disabled")
			}
			if p.writerSignal != nil {
				t.Error("expected nil signal writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:         false,
		Brokers:         []string{"localhost:9092"},
		TopicTranscript: "test.transcript.final",
		TopicSignal:     "test.signal",
		Principal:       "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicTranscript != "test.transcript.final" {
		t.Errorf("expected transcript topic 'test.transcript.final', got %s", p.topicTranscript)
	}
	if p.topicSignal != "test.signal" {
		t.Errorf("expected signal topic 'test.signal', got %s", p.topicSignal)
	}
}

func TestPublisher_PublishUtterance_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	utt := models.FinalizedUtterance{
		SessionID: "sess-1",
		TurnID:    "sess-1-turn-1",
		Speaker:   models.SpeakerUser,
		Language:  models.LanguageEnglish,
		Text:      "How do I swap a battery?",
	}
	err := p.PublishUtterance(context.Background(), utt)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishSignal_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	sig := SignalEvent{
		EventType: SignalSessionClosed,
		SessionID: "sess-1",
		Reason:    "goodbye detected",
	}
	err := p.PublishSignal(context.Background(), sig)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Publish_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Channels are not JSON-marshalable.
	err := p.publish(context.Background(), nil, "test.topic", "utterance", "key", make(chan int))

	if err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisher(t *testing.T) {
	p := &Publisher{
		writerTranscript: nil,
		writerSignal:     nil,
	}

	err := p.Close()
	if err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
