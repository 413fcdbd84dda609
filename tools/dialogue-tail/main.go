// Dialogue Tail - Real-time dialogue transcript display
// Consumes from Kafka topics and renders the conversation in the terminal
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/segmentio/kafka-go"
)

// UtteranceEvent is a finalized utterance from the transcript topic.
type UtteranceEvent struct {
	SessionID string `json:"sessionId"`
	TurnID    string `json:"turnId"`
	Speaker   string `json:"speaker"`
	Language  string `json:"language"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SignalEvent is a session lifecycle signal from the signal topic.
type SignalEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	TurnID    string `json:"turnId,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

var (
	userLine      = color.New(color.FgGreen, color.Bold).SprintFunc()
	assistantLine = color.New(color.FgCyan, color.Bold).SprintFunc()
	signalLine    = color.New(color.FgYellow).SprintFunc()
	sessionTag    = color.New(color.Faint).SprintFunc()
)

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newReader(brokers, topic string) *kafka.Reader {
	// Partition reader without consumer group (works better through port-forward)
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
}

func tailTranscripts(ctx context.Context, brokers, topic string, session string) {
	reader := newReader(brokers, topic)
	defer reader.Close()

	reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour))

	log.Printf("Tailing transcript topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		var event UtteranceEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			continue
		}
		if session != "" && event.SessionID != session {
			continue
		}

		speaker := userLine("User")
		if event.Speaker == "assistant" {
			speaker = assistantLine("Assistant")
		}
		log.Printf("%s %s [%s]: %s",
			sessionTag(shortSession(event.SessionID)), speaker, event.Language, event.Text)
	}
}

func tailSignals(ctx context.Context, brokers, topic string, session string) {
	reader := newReader(brokers, topic)
	defer reader.Close()

	reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour))

	log.Printf("Tailing signal topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		var event SignalEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			continue
		}
		if session != "" && event.SessionID != session {
			continue
		}

		detail := event.Status
		if event.Reason != "" {
			detail = event.Reason
		}
		log.Printf("%s %s %s",
			sessionTag(shortSession(event.SessionID)),
			signalLine(event.EventType),
			truncate(detail, 60))
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicTranscript := flag.String("topic-transcript", "session.transcript.final", "Finalized utterance topic")
	topicSignal := flag.String("topic-signal", "session.signal", "Session lifecycle signal topic")
	session := flag.String("session", "", "Only show events for this session id")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go tailTranscripts(ctx, *brokers, *topicTranscript, *session)
	go tailSignals(ctx, *brokers, *topicSignal, *session)

	log.Printf("Dialogue tail started")
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicTranscript, *topicSignal)

	<-ctx.Done()
	log.Printf("Shutting down")
}
