package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"ev-faq-dialogue-service/internal/config"
	"ev-faq-dialogue-service/internal/events"
	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/service/llm"
)

// fakeSink records everything sent toward the client.
type fakeSink struct {
	mu     sync.Mutex
	events []any
	audio  [][]byte
	closed int
}

func (s *fakeSink) SendEvent(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, audio)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSink) transcriptions() []models.TranscriptionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TranscriptionEvent
	for _, ev := range s.events {
		if t, ok := ev.(models.TranscriptionEvent); ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeSink) statuses() []models.StatusUpdateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatusUpdateEvent
	for _, ev := range s.events {
		if st, ok := ev.(models.StatusUpdateEvent); ok {
			out = append(out, st)
		}
	}
	return out
}

func (s *fakeSink) transfers() []models.TransferRequestEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TransferRequestEvent
	for _, ev := range s.events {
		if tr, ok := ev.(models.TransferRequestEvent); ok {
			out = append(out, tr)
		}
	}
	return out
}

func (s *fakeSink) closedEvents() []models.SessionClosedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SessionClosedEvent
	for _, ev := range s.events {
		if c, ok := ev.(models.SessionClosedEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSink) audioFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audio)
}

// fakeSearcher returns scripted retrieval results.
type fakeSearcher struct {
	mu        sync.Mutex
	results   []models.RetrievalResult
	err       error
	calls     int
	lastQuery string
	lastK     int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = query
	f.lastK = k
	return f.results, f.err
}

func (f *fakeSearcher) set(results []models.RetrievalResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
	f.err = err
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLLM streams scripted chunks. With blockFirst set, the first call
// parks until its context is cancelled.
type fakeLLM struct {
	mu         sync.Mutex
	chunks     []string
	err        error
	blockFirst bool
	calls      int
	lastMsgs   []llm.Message
}

func (f *fakeLLM) Stream(ctx context.Context, messages []llm.Message, cb llm.StreamCallback) error {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.lastMsgs = append([]llm.Message(nil), messages...)
	chunks := f.chunks
	err := f.err
	blockFirst := f.blockFirst
	f.mu.Unlock()

	if blockFirst && call == 1 {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	full := ""
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		full += chunk
		cb(chunk, false)
	}
	cb(full, true)
	return nil
}

func (f *fakeLLM) lastMessages() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMsgs
}

// fakeTTS returns a fixed clip.
type fakeTTS struct {
	mu    sync.Mutex
	audio []byte
	err   error
	calls int
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, lang models.Language) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.audio, f.err
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TopK:              3,
		RetrievalTimeout:  time.Second,
		GenerationTimeout: time.Second,
		FarewellGrace:     150 * time.Millisecond,
		ClosingPhrases:    []string{"thank you", "bye", "धन्यवाद", "अलविदा"},
		Greeting:          false,
	}
}

func newTestController(cfg config.SessionConfig, searcher *fakeSearcher, llmClient *fakeLLM, synth *fakeTTS, sink *fakeSink) *Controller {
	publisher := events.New(&events.Config{Enabled: false})
	return New("sess-1", cfg, searcher, llmClient, synth, publisher, sink)
}

func userFinal(text string) models.TranscriptionEvent {
	return models.TranscriptionEvent{Type: models.EventTypeTranscription, Role: models.SpeakerUser, Text: text, IsFinal: true}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestController_HappyTurn(t *testing.T) {
	searcher := &fakeSearcher{results: []models.RetrievalResult{
		{Entry: models.FaqEntry{ID: 1, Category: "Pricing", QuestionEN: "Cost?", AnswerEN: "50 rupees."}, Score: 0.91},
	}}
	llmClient := &fakeLLM{chunks: []string{"A swap ", "costs 50 rupees."}}
	synth := &fakeTTS{audio: []byte("mp3-bytes")}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, llmClient, synth, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	if err := c.Apply(userFinal("What does a swap cost?")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	waitFor(t, func() bool { return len(c.Transcript()) == 2 }, "Expected user and assistant utterances in transcript")

	transcript := c.Transcript()
	if transcript[1].Speaker != models.SpeakerAssistant {
		t.Errorf("Expected assistant entry, got %s", transcript[1].Speaker)
	}
	if transcript[1].Text != "A swap costs 50 rupees." {
		t.Errorf("Expected full streamed reply, got %q", transcript[1].Text)
	}
	if transcript[1].TurnID != transcript[0].TurnID {
		t.Errorf("Expected assistant reply on the user's turn, got %s vs %s", transcript[1].TurnID, transcript[0].TurnID)
	}

	if searcher.lastK != 3 {
		t.Errorf("Expected top-3 retrieval, got %d", searcher.lastK)
	}
	if searcher.lastQuery != "What does a swap cost?" {
		t.Errorf("Expected user text as query, got %q", searcher.lastQuery)
	}

	statuses := sink.statuses()
	if len(statuses) != 2 {
		t.Fatalf("Expected searching+synthesizing statuses only, got %d", len(statuses))
	}
	if statuses[0].StatusType != models.StatusTypeSearching || statuses[1].StatusType != models.StatusTypeSynthesizing {
		t.Errorf("Unexpected status sequence: %s, %s", statuses[0].StatusType, statuses[1].StatusType)
	}

	// Mirrors: user final + 2 cumulative assistant partials + assistant final.
	trans := sink.transcriptions()
	if len(trans) != 4 {
		t.Fatalf("Expected 4 transcription mirrors, got %d", len(trans))
	}
	if trans[1].Text != "A swap " || trans[1].IsFinal {
		t.Errorf("Expected first cumulative partial, got %+v", trans[1])
	}
	if trans[2].Text != "A swap costs 50 rupees." || trans[2].IsFinal {
		t.Errorf("Expected second cumulative partial, got %+v", trans[2])
	}
	if !trans[3].IsFinal || trans[3].Role != models.SpeakerAssistant {
		t.Errorf("Expected assistant final mirror, got %+v", trans[3])
	}

	// Audio trails the final mirror; TTS runs after the transcript append.
	waitFor(t, func() bool { return sink.audioFrames() == 1 }, "Expected one TTS audio frame")

	// The context injection carried the retrieved FAQ.
	messages := llmClient.lastMessages()
	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "RELEVANT INFORMATION FROM KNOWLEDGE BASE") {
		t.Errorf("Expected knowledge base injection, got %q", last.Content)
	}
	if !strings.Contains(last.Content, "50 rupees.") {
		t.Error("Expected retrieved answer inside the injection")
	}
}

func TestController_NoHitsSteersTransferOffer(t *testing.T) {
	searcher := &fakeSearcher{}
	llmClient := &fakeLLM{chunks: []string{"I'm sorry, I don't have information about that."}}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, llmClient, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal("Can you book me a flight?"))

	waitFor(t, func() bool { return len(c.Transcript()) == 2 }, "Expected assistant reply")

	messages := llmClient.lastMessages()
	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "No relevant information found") {
		t.Errorf("Expected no-context steering message, got %q", last.Content)
	}
}

func TestController_RetrievalErrorKeepsSessionUsable(t *testing.T) {
	searcher := &fakeSearcher{err: context.DeadlineExceeded}
	llmClient := &fakeLLM{chunks: []string{"The warranty covers 3 years."}}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, llmClient, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal("What is the warranty?"))

	waitFor(t, func() bool {
		sts := sink.statuses()
		return len(sts) == 2 && sts[1].StatusType == models.StatusTypeError
	}, "Expected an error status after retrieval failure")

	if sts := sink.statuses(); sts[1].Status != "Search failed" {
		t.Errorf("Expected search failure display text, got %q", sts[1].Status)
	}
	if len(c.Transcript()) != 1 {
		t.Errorf("Expected no assistant entry for the failed turn, got %d utterances", len(c.Transcript()))
	}

	// The next utterance works once retrieval recovers.
	searcher.set([]models.RetrievalResult{
		{Entry: models.FaqEntry{ID: 2, Category: "Warranty", QuestionEN: "Warranty?", AnswerEN: "3 years."}, Score: 0.8},
	}, nil)

	c.Apply(userFinal("Let me ask again: what is the warranty?"))

	waitFor(t, func() bool { return len(c.Transcript()) == 3 }, "Expected the session to stay usable after an error turn")

	transcript := c.Transcript()
	if transcript[2].Speaker != models.SpeakerAssistant {
		t.Errorf("Expected assistant reply on retry, got %s", transcript[2].Speaker)
	}
}

func TestController_GenerationErrorSurfaced(t *testing.T) {
	searcher := &fakeSearcher{results: []models.RetrievalResult{
		{Entry: models.FaqEntry{ID: 1, QuestionEN: "Q", AnswerEN: "A"}, Score: 0.5},
	}}
	llmClient := &fakeLLM{err: context.DeadlineExceeded}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, llmClient, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal("How far can it go?"))

	waitFor(t, func() bool {
		sts := sink.statuses()
		return len(sts) == 3 && sts[2].StatusType == models.StatusTypeError
	}, "Expected an error status after generation failure")

	if sts := sink.statuses(); sts[2].Status != "Response generation failed" {
		t.Errorf("Expected generation failure display text, got %q", sts[2].Status)
	}
	if len(c.Transcript()) != 1 {
		t.Errorf("Expected no assistant entry, got %d utterances", len(c.Transcript()))
	}
}

func TestController_EmptyUserFinalSkipsTurn(t *testing.T) {
	searcher := &fakeSearcher{}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal(""))

	time.Sleep(50 * time.Millisecond)

	// The empty final is appended verbatim, but drives no pipeline.
	if len(c.Transcript()) != 1 {
		t.Errorf("Expected the empty final in the transcript, got %d utterances", len(c.Transcript()))
	}
	if searcher.callCount() != 0 {
		t.Errorf("Expected no retrieval for an empty final, got %d calls", searcher.callCount())
	}
	if len(sink.statuses()) != 0 {
		t.Errorf("Expected no statuses for an empty final, got %d", len(sink.statuses()))
	}
}

func TestController_FarewellClosesAfterGrace(t *testing.T) {
	searcher := &fakeSearcher{}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()

	c.Apply(userFinal("Thank you, bye!"))

	waitFor(t, func() bool { return len(c.Transcript()) == 2 }, "Expected a spoken farewell")

	transcript := c.Transcript()
	if transcript[1].Speaker != models.SpeakerAssistant {
		t.Errorf("Expected assistant farewell, got %s", transcript[1].Speaker)
	}
	if transcript[1].Text != "Thank you for calling. Goodbye!" {
		t.Errorf("Expected English farewell line, got %q", transcript[1].Text)
	}

	waitFor(t, c.Closed, "Expected session to close after the grace delay")

	closed := sink.closedEvents()
	if len(closed) != 1 {
		t.Fatalf("Expected exactly one session_closed, got %d", len(closed))
	}
	if closed[0].Reason != CloseReasonGoodbye {
		t.Errorf("Expected goodbye close reason, got %q", closed[0].Reason)
	}

	if searcher.callCount() != 0 {
		t.Errorf("Expected no retrieval for a goodbye utterance, got %d calls", searcher.callCount())
	}

	if err := c.Apply(userFinal("one more question")); err != ErrSessionClosed {
		t.Errorf("Expected ErrSessionClosed after teardown, got %v", err)
	}
}

func TestController_FarewellSpokenInHindi(t *testing.T) {
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), &fakeSearcher{}, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal("धन्यवाद"))

	waitFor(t, func() bool { return len(c.Transcript()) == 2 }, "Expected a spoken farewell")

	if got := c.Transcript()[1].Text; got != "कॉल करने के लिए धन्यवाद। अलविदा!" {
		t.Errorf("Expected Hindi farewell line, got %q", got)
	}
}

func TestController_CloseIdempotent(t *testing.T) {
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), &fakeSearcher{}, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close(CloseReasonClient)
		}()
	}
	wg.Wait()
	c.Close(CloseReasonShutdown)

	closed := sink.closedEvents()
	if len(closed) != 1 {
		t.Fatalf("Expected exactly one session_closed across concurrent teardowns, got %d", len(closed))
	}
	if closed[0].Reason != CloseReasonClient {
		t.Errorf("Expected the first teardown's reason, got %q", closed[0].Reason)
	}
}

func TestController_DisconnectCancelsGrace(t *testing.T) {
	cfg := testSessionConfig()
	cfg.FarewellGrace = 500 * time.Millisecond
	sink := &fakeSink{}

	c := newTestController(cfg, &fakeSearcher{}, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()

	c.Apply(userFinal("bye"))
	c.Close(CloseReasonClient)

	// Past the grace deadline: the goodbye close must not fire a second
	// notification into the dead session.
	time.Sleep(600 * time.Millisecond)

	closed := sink.closedEvents()
	if len(closed) != 1 {
		t.Fatalf("Expected one session_closed, got %d", len(closed))
	}
	if closed[0].Reason != CloseReasonClient {
		t.Errorf("Expected disconnect reason to win, got %q", closed[0].Reason)
	}
}

func TestController_TransferRequest(t *testing.T) {
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), &fakeSearcher{}, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.RequestTransfer("User requested human assistance")

	waitFor(t, func() bool { return len(c.Transcript()) == 1 }, "Expected spoken transfer notice")

	transfers := sink.transfers()
	if len(transfers) != 1 {
		t.Fatalf("Expected exactly one transfer_request, got %d", len(transfers))
	}
	if transfers[0].Reason != "User requested human assistance" {
		t.Errorf("Expected reason verbatim, got %q", transfers[0].Reason)
	}

	// Each request delivers exactly one event.
	c.RequestTransfer("escalation")
	if got := len(sink.transfers()); got != 2 {
		t.Errorf("Expected 2 transfer events after 2 requests, got %d", got)
	}
}

func TestController_TransferIgnoredAfterClose(t *testing.T) {
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), &fakeSearcher{}, &fakeLLM{}, &fakeTTS{}, sink)
	c.Start()
	c.Close(CloseReasonClient)

	c.RequestTransfer("too late")

	if got := len(sink.transfers()); got != 0 {
		t.Errorf("Expected no transfer events on a closed session, got %d", got)
	}
}

func TestController_NewUtteranceSupersedesInFlightTurn(t *testing.T) {
	searcher := &fakeSearcher{results: []models.RetrievalResult{
		{Entry: models.FaqEntry{ID: 1, QuestionEN: "Q", AnswerEN: "A"}, Score: 0.5},
	}}
	llmClient := &fakeLLM{chunks: []string{"The second answer."}, blockFirst: true}
	sink := &fakeSink{}

	c := newTestController(testSessionConfig(), searcher, llmClient, &fakeTTS{}, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	c.Apply(userFinal("first question"))

	// Wait until the first turn is parked inside the model call.
	waitFor(t, func() bool {
		llmClient.mu.Lock()
		defer llmClient.mu.Unlock()
		return llmClient.calls == 1
	}, "Expected first turn to reach the model")

	c.Apply(userFinal("second question"))

	waitFor(t, func() bool { return len(c.Transcript()) == 3 }, "Expected a reply to the superseding question")

	transcript := c.Transcript()
	assistant := 0
	for _, utt := range transcript {
		if utt.Speaker == models.SpeakerAssistant {
			assistant++
			if utt.Text != "The second answer." {
				t.Errorf("Expected only the second turn's reply, got %q", utt.Text)
			}
		}
	}
	if assistant != 1 {
		t.Errorf("Expected exactly one assistant reply, got %d", assistant)
	}

	// The superseded turn must not surface an error status.
	for _, st := range sink.statuses() {
		if st.StatusType == models.StatusTypeError {
			t.Errorf("Cancelled turn should not emit an error status, got %+v", st)
		}
	}
}

func TestController_GreetingOnStart(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Greeting = true
	synth := &fakeTTS{audio: []byte("greeting-audio")}
	sink := &fakeSink{}

	c := newTestController(cfg, &fakeSearcher{}, &fakeLLM{}, synth, sink)
	c.Start()
	defer c.Close(CloseReasonShutdown)

	waitFor(t, func() bool { return len(c.Transcript()) == 1 }, "Expected a greeting utterance")

	greeting := c.Transcript()[0]
	if greeting.Speaker != models.SpeakerAssistant {
		t.Errorf("Expected assistant greeting, got %s", greeting.Speaker)
	}
	if greeting.TurnID != "sess-1-turn-0" {
		t.Errorf("Expected greeting on turn zero, got %s", greeting.TurnID)
	}

	waitFor(t, func() bool { return sink.audioFrames() == 1 }, "Expected greeting audio")
}
