package intent

import (
	"testing"
	"time"
)

func defaultPhrases() []string {
	return []string{"thank you", "bye", "धन्यवाद", "अलविदा"}
}

func TestDetector_Match(t *testing.T) {
	d := NewDetector(defaultPhrases())

	tests := []struct {
		text  string
		match bool
	}{
		{"Thank you, bye!", true},
		{"I am not done yet", false},
		{"धन्यवाद", true},
		{"okay bye then", true},
		{"THANK YOU SO MUCH", true},
		{"अलविदा दोस्त", true},
		{"What about my battery?", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		_, got := d.Match(tt.text)
		if got != tt.match {
			t.Errorf("Match(%q): expected %v, got %v", tt.text, tt.match, got)
		}
	}
}

func TestDetector_FirstMatchWins(t *testing.T) {
	d := NewDetector(defaultPhrases())

	// Both "thank you" and "bye" are present; the earlier configured
	// phrase is reported.
	phrase, ok := d.Match("bye and thank you")
	if !ok {
		t.Fatal("Expected a match")
	}
	if phrase != "thank you" {
		t.Errorf("Expected first configured phrase to win, got %q", phrase)
	}
}

func TestDetector_NormalizesPhrases(t *testing.T) {
	d := NewDetector([]string{"  GOODBYE  ", "", "   "})

	phrase, ok := d.Match("well, goodbye now")
	if !ok {
		t.Fatal("Expected a match against the normalized phrase")
	}
	if phrase != "goodbye" {
		t.Errorf("Expected normalized phrase, got %q", phrase)
	}

	if _, ok := d.Match("anything at all"); ok {
		t.Error("Blank phrases should not match everything")
	}
}

func TestDetector_EmptyPhraseSet(t *testing.T) {
	d := NewDetector(nil)

	if _, ok := d.Match("thank you, bye"); ok {
		t.Error("Expected no match with an empty phrase set")
	}
}

func TestGraceTimer_FiresAfterDelay(t *testing.T) {
	g := NewGraceTimer(20 * time.Millisecond)

	fired := make(chan struct{})
	if !g.Arm(func() { close(fired) }) {
		t.Fatal("Expected Arm to succeed on an idle timer")
	}
	if !g.Armed() {
		t.Error("Expected timer to report armed")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Expected callback to fire after the grace delay")
	}

	if g.Armed() {
		t.Error("Expected timer to be disarmed after firing")
	}
}

func TestGraceTimer_CancelPreventsFiring(t *testing.T) {
	g := NewGraceTimer(30 * time.Millisecond)

	fired := make(chan struct{})
	g.Arm(func() { close(fired) })

	if !g.Cancel() {
		t.Fatal("Expected Cancel to report a stopped timer")
	}
	if g.Armed() {
		t.Error("Expected timer disarmed after cancel")
	}

	// Wait past the deadline to make sure the callback never runs.
	select {
	case <-fired:
		t.Fatal("Callback fired after cancel")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestGraceTimer_ArmIsSingleShot(t *testing.T) {
	g := NewGraceTimer(30 * time.Millisecond)

	var first, second int
	fired := make(chan struct{})

	g.Arm(func() {
		first++
		close(fired)
	})

	// A second goodbye while armed keeps the original deadline.
	if g.Arm(func() { second++ }) {
		t.Error("Expected Arm to refuse while already armed")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Expected the first callback to fire")
	}

	time.Sleep(50 * time.Millisecond)
	if first != 1 {
		t.Errorf("Expected first callback to fire once, got %d", first)
	}
	if second != 0 {
		t.Errorf("Expected second callback never to fire, got %d", second)
	}
}

func TestGraceTimer_CancelIdempotent(t *testing.T) {
	g := NewGraceTimer(time.Hour)

	g.Arm(func() {})

	if !g.Cancel() {
		t.Error("Expected first cancel to stop the timer")
	}
	if g.Cancel() {
		t.Error("Expected second cancel to be a no-op")
	}
	if g.Cancel() {
		t.Error("Expected repeated cancel to stay a no-op")
	}
}

func TestGraceTimer_RearmAfterCancel(t *testing.T) {
	g := NewGraceTimer(10 * time.Millisecond)

	g.Arm(func() {})
	g.Cancel()

	fired := make(chan struct{})
	if !g.Arm(func() { close(fired) }) {
		t.Fatal("Expected Arm to succeed after cancel")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Expected re-armed timer to fire")
	}
}
