// Package index builds and serves the FAQ vector index. A build produces
// an immutable Snapshot; the Store publishes snapshots by reference so
// searches never observe a partially built index.
package index

import (
	"math"
	"sort"
	"time"

	"ev-faq-dialogue-service/internal/models"
)

// Row is one embedded text in the index. Each entry contributes one row
// per language variant, all living in a single shared vector space.
type Row struct {
	FaqID    int             `json:"faqId"`
	Language models.Language `json:"language"`
	Text     string          `json:"text"`
	Vector   []float32       `json:"vector"`
}

// Snapshot is a fully built index. It is never mutated after construction.
type Snapshot struct {
	Model   string            `json:"model"`
	BuiltAt time.Time         `json:"builtAt"`
	Rows    []Row             `json:"rows"`
	Catalog []models.FaqEntry `json:"catalog"`

	byID map[int]models.FaqEntry
}

// hydrate rebuilds the derived id lookup after construction or decode.
func (s *Snapshot) hydrate() {
	s.byID = make(map[int]models.FaqEntry, len(s.Catalog))
	for _, e := range s.Catalog {
		s.byID[e.ID] = e
	}
}

// Count returns the number of FAQ entries in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.Catalog)
}

// Search returns the top-k entries ranked by cosine similarity to queryVec.
// All language rows compete in the same space; an entry's score is its best
// row, so a Hindi query can surface an entry via its English row and vice
// versa. Ties are broken by lower FAQ id for determinism.
func (s *Snapshot) Search(queryVec []float32, k int) []models.RetrievalResult {
	if k <= 0 || len(s.Rows) == 0 {
		return nil
	}

	best := make(map[int]float64, len(s.byID))
	for _, row := range s.Rows {
		score := cosineSimilarity(queryVec, row.Vector)
		if cur, ok := best[row.FaqID]; !ok || score > cur {
			best[row.FaqID] = score
		}
	}

	results := make([]models.RetrievalResult, 0, len(best))
	for id, score := range best {
		results = append(results, models.RetrievalResult{
			Entry: s.byID[id],
			Score: score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})

	if k < len(results) {
		results = results[:k]
	}

	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
