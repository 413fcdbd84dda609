// Package mock provides a deterministic embedder for testing and local
// development without a model server. The same text always maps to the
// same vector, so index builds are reproducible.
package mock

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
)

// Embedder implements embeddings.Embedder with deterministic vectors.
// Specific texts can be scripted to exact vectors to steer ranking in
// tests; everything else gets a stable hash-derived vector.
type Embedder struct {
	mu       sync.Mutex
	dim      int
	scripted map[string][]float32
	err      error
}

// New creates a mock embedder producing vectors of the given dimension.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = 8
	}
	return &Embedder{
		dim:      dim,
		scripted: make(map[string][]float32),
	}
}

// Script pins the vector returned for an exact text.
func (e *Embedder) Script(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripted[text] = vec
}

// Fail makes all subsequent Embed calls return err. Pass nil to recover.
func (e *Embedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Embed returns the scripted or hash-derived vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.scripted[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return vec, nil
}

// Model identifies the mock provider.
func (e *Embedder) Model() string {
	return "mock"
}
