// Package retrieval answers free-text queries against the FAQ index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ev-faq-dialogue-service/internal/embeddings"
	"ev-faq-dialogue-service/internal/index"
	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

// ErrIndexNotLoaded means Search was called before any index was built or
// loaded. Distinct from an empty result, which is a valid answer.
var ErrIndexNotLoaded = errors.New("faq index not loaded")

// Retriever embeds queries and searches the active index snapshot. It is
// read-only and safe for concurrent use from any number of sessions.
type Retriever struct {
	store    *index.Store
	embedder embeddings.Embedder
	metrics  *metrics.Metrics
}

// New creates a Retriever over a store and an embedding provider. The
// embedder must match the one the index was built with.
func New(store *index.Store, embedder embeddings.Embedder) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		metrics:  metrics.DefaultMetrics,
	}
}

// Search returns up to k FAQ entries ranked by similarity to queryText.
// The query language does not matter: queries and index rows share one
// vector space, so Hindi text retrieves English entries and vice versa.
func (r *Retriever) Search(ctx context.Context, queryText string, k int) ([]models.RetrievalResult, error) {
	start := time.Now()
	results, err := r.search(ctx, queryText, k)
	r.metrics.RecordRetrieval(len(results), err, time.Since(start).Seconds())
	return results, err
}

func (r *Retriever) search(ctx context.Context, queryText string, k int) ([]models.RetrievalResult, error) {
	// Take the snapshot pointer once; a concurrent rebuild swap cannot
	// affect this query.
	snap := r.store.Snapshot()
	if snap == nil {
		return nil, ErrIndexNotLoaded
	}

	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return snap.Search(vec, k), nil
}

// Ready reports whether an index is loaded and searchable.
func (r *Retriever) Ready() bool {
	return r.store.Snapshot() != nil
}
