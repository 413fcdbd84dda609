package intent

import (
	"strings"
	"sync"
	"time"

	"ev-faq-dialogue-service/internal/observability/metrics"
)

// Detector matches closing intent in finalized user utterances against a
// configured bilingual phrase set. Matching is case-folded containment,
// not exact equality, so "okay bye then" matches the phrase "bye". Short
// phrases can match inside unrelated words; configured phrases should be
// whole words or longer.
type Detector struct {
	phrases []string
}

// NewDetector builds a Detector. Phrases are normalized once; empty
// entries are dropped.
func NewDetector(phrases []string) *Detector {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return &Detector{phrases: normalized}
}

// Match reports whether text contains a closing phrase. The first
// configured phrase that matches wins; there is no scoring. The returned
// phrase is the configured one, not the matched span.
func (d *Detector) Match(text string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return "", false
	}
	for _, p := range d.phrases {
		if strings.Contains(needle, p) {
			return p, true
		}
	}
	return "", false
}

// GraceTimer delays session close after a detected goodbye so a farewell
// reply can be spoken first. Arm schedules the callback once; Cancel
// stops it if the session tears down for another reason before expiry.
// The callback runs on the timer's goroutine with no GraceTimer lock
// held, and never runs after a successful Cancel.
type GraceTimer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool

	metrics *metrics.Metrics
}

// NewGraceTimer creates a GraceTimer with the given delay.
func NewGraceTimer(delay time.Duration) *GraceTimer {
	return &GraceTimer{
		delay:   delay,
		metrics: metrics.DefaultMetrics,
	}
}

// Arm schedules fn after the grace delay. Returns false if a timer is
// already armed; the first goodbye's timer keeps its deadline.
func (g *GraceTimer) Arm(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return false
	}

	g.active = true
	g.timer = time.AfterFunc(g.delay, func() {
		g.expire(fn)
	})
	g.metrics.RecordFarewellArmed()
	return true
}

func (g *GraceTimer) expire(fn func()) {
	g.mu.Lock()
	if !g.active {
		// Cancelled between the timer firing and this check.
		g.mu.Unlock()
		return
	}
	g.active = false
	g.mu.Unlock()

	fn()
}

// Cancel stops an armed timer. Returns true if a pending callback was
// prevented from firing. Safe to call repeatedly.
func (g *GraceTimer) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active {
		return false
	}

	g.active = false
	if g.timer != nil {
		g.timer.Stop()
	}
	g.metrics.RecordFarewellCancelled()
	return true
}

// Armed reports whether the timer is pending.
func (g *GraceTimer) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
