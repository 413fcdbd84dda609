package turn

import (
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestGenerator_Next(t *testing.T) {
	gen := NewGenerator()

	turn1 := gen.Next("sess-123")
	if turn1 != "sess-123-turn-1" {
		t.Errorf("expected 'sess-123-turn-1', got %s", turn1)
	}

	turn2 := gen.Next("sess-123")
	if turn2 != "sess-123-turn-2" {
		t.Errorf("expected 'sess-123-turn-2', got %s", turn2)
	}
}

func TestGenerator_ThreadSafety(t *testing.T) {
	gen := NewGenerator()
	numGoroutines := 100
	resultsPerGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan string, numGoroutines*resultsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < resultsPerGoroutine; j++ {
				results <- gen.Next("sess-concurrent")
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("duplicate turn ID generated: %s", id)
		}
		seen[id] = true
	}

	expectedCount := numGoroutines * resultsPerGoroutine
	if len(seen) != expectedCount {
		t.Errorf("expected %d unique turn IDs, got %d", expectedCount, len(seen))
	}
}

func TestGenerator_CounterMonotonic(t *testing.T) {
	gen := NewGenerator()

	var prev uint64
	for i := 0; i < 100; i++ {
		id := gen.Next("sess-test")
		numStr := id[strings.LastIndex(id, "-")+1:]
		num, err := strconv.ParseUint(numStr, 10, 64)
		if err != nil {
			t.Fatalf("failed to parse turn id %s: %v", id, err)
		}
		if num <= prev {
			t.Errorf("counter not monotonic: %d <= %d", num, prev)
		}
		prev = num
	}
}

func TestZero(t *testing.T) {
	if got := Zero("sess-9"); got != "sess-9-turn-0" {
		t.Errorf("expected 'sess-9-turn-0', got %s", got)
	}
}
