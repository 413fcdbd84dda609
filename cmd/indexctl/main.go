// indexctl builds the FAQ vector index offline, the same build the
// service runs on POST /v1/reindex. Useful for baking an index into a
// deploy artifact or rebuilding without a running service.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ev-faq-dialogue-service/internal/embeddings"
	"ev-faq-dialogue-service/internal/embeddings/mock"
	"ev-faq-dialogue-service/internal/embeddings/ollama"
	"ev-faq-dialogue-service/internal/index"
	"ev-faq-dialogue-service/internal/observability/logging"
)

var (
	corpusPath = flag.String("corpus", "data/faqs.json", "Corpus file: JSON array of FAQ entries")
	outPath    = flag.String("out", "data/faq_index.json", "Index output path")
	provider   = flag.String("provider", "ollama", "Embedding provider (ollama or mock)")
	ollamaURL  = flag.String("ollama-url", "http://localhost:11434", "Ollama base URL")
	model      = flag.String("model", "bge-m3", "Embedding model")
	timeout    = flag.Duration("timeout", 120*time.Second, "Per-embedding timeout")
)

func main() {
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339})

	corpus, err := index.LoadCorpus(*corpusPath)
	if err != nil {
		log.Fatalf("failed to load corpus: %v", err)
	}
	log.Printf("loaded corpus: %d entries from %s", len(corpus), *corpusPath)

	var embedder embeddings.Embedder
	if *provider == "mock" {
		embedder = mock.New(16)
	} else {
		embedder = ollama.New(*ollamaURL, *model, *timeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	snap, err := index.NewBuilder(embedder).Build(ctx, corpus)
	if err != nil {
		log.Fatalf("failed to build index: %v", err)
	}

	store := index.NewStore(*outPath)
	if err := store.Save(snap); err != nil {
		log.Fatalf("failed to save index: %v", err)
	}

	log.Printf("index built: %d entries, %d rows in %s → %s",
		snap.Count(), len(snap.Rows), time.Since(start).Round(time.Millisecond), *outPath)
}
