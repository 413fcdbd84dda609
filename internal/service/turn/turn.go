package turn

import (
	"fmt"
	"sync/atomic"
)

// Generator produces monotonically increasing turn ids.
type Generator struct {
	counter uint64
}

// NewGenerator creates a Generator starting at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next turn id for a session.
func (g *Generator) Next(sessionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-turn-%d", sessionId, n)
}

// Zero returns the pre-first-turn id for a session, used for assistant
// utterances that precede any user turn (e.g. the greeting).
func Zero(sessionId string) string {
	return fmt.Sprintf("%s-turn-0", sessionId)
}
