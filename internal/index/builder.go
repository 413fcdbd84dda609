package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"ev-faq-dialogue-service/internal/embeddings"
	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

// Build failures are terminal for the attempt; nothing is persisted or
// published on error.
var (
	// ErrEmptyCorpus means the corpus parsed to zero entries.
	ErrEmptyCorpus = errors.New("faq corpus is empty")

	// ErrMissingQuestion means an entry has no question in any language.
	ErrMissingQuestion = errors.New("faq entry has no question in any language")
)

// Builder turns a FAQ corpus into a Snapshot.
type Builder struct {
	embedder embeddings.Embedder
	metrics  *metrics.Metrics
}

// NewBuilder creates a Builder on top of an embedding provider.
func NewBuilder(embedder embeddings.Embedder) *Builder {
	return &Builder{
		embedder: embedder,
		metrics:  metrics.DefaultMetrics,
	}
}

// Build embeds every language variant of every entry and assembles a
// Snapshot. Entries are processed in id order and languages in a fixed
// order, so rebuilding an unchanged corpus reproduces the same rankings.
func (b *Builder) Build(ctx context.Context, corpus []models.FaqEntry) (*Snapshot, error) {
	start := time.Now()
	snap, err := b.build(ctx, corpus)

	entries := 0
	if snap != nil {
		entries = snap.Count()
	}
	b.metrics.RecordIndexBuild(entries, err, time.Since(start).Seconds())

	return snap, err
}

func (b *Builder) build(ctx context.Context, corpus []models.FaqEntry) (*Snapshot, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	sorted := make([]models.FaqEntry, len(corpus))
	copy(sorted, corpus)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	// Validate before embedding anything; a bad entry fails the whole
	// build rather than producing a partial index.
	for _, entry := range sorted {
		if entry.QuestionEN == "" && entry.QuestionHI == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingQuestion, entry.ID)
		}
	}

	rows := make([]Row, 0, 2*len(sorted))
	for _, entry := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if entry.QuestionEN != "" {
			row, err := b.embedRow(ctx, entry.ID, models.LanguageEnglish, entry.QuestionEN, entry.AnswerEN)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if entry.QuestionHI != "" {
			row, err := b.embedRow(ctx, entry.ID, models.LanguageHindi, entry.QuestionHI, entry.AnswerHI)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	snap := &Snapshot{
		Model:   b.embedder.Model(),
		BuiltAt: time.Now().UTC(),
		Rows:    rows,
		Catalog: sorted,
	}
	snap.hydrate()

	return snap, nil
}

// embedRow embeds "question answer" as one text, matching how queries are
// embedded at search time.
func (b *Builder) embedRow(ctx context.Context, id int, lang models.Language, question, answer string) (Row, error) {
	text := question
	if answer != "" {
		text = question + " " + answer
	}

	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return Row{}, fmt.Errorf("embed entry %d (%s): %w", id, lang, err)
	}

	return Row{
		FaqID:    id,
		Language: lang,
		Text:     text,
		Vector:   vec,
	}, nil
}

// LoadCorpus reads a corpus file: a JSON array of FAQ entries.
func LoadCorpus(path string) ([]models.FaqEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var corpus []models.FaqEntry
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}

	return corpus, nil
}
