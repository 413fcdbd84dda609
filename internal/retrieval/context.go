package retrieval

import (
	"fmt"
	"strings"

	"ev-faq-dialogue-service/internal/models"
)

// NoMatchContext is handed to the LLM when retrieval finds nothing, so the
// model knows to offer a human transfer instead of guessing.
const NoMatchContext = "No similar FAQs found."

// BuildContext formats retrieval results into the grounding block injected
// into the LLM prompt. Question and answer are rendered in the caller's
// language where the entry has that variant.
func BuildContext(results []models.RetrievalResult, lang models.Language) string {
	if len(results) == 0 {
		return NoMatchContext
	}

	parts := []string{"Here are the most relevant FAQs:\n"}
	for i, r := range results {
		parts = append(parts,
			fmt.Sprintf("\n%d. Category: %s", i+1, r.Entry.Category),
			fmt.Sprintf("   Q: %s", r.Entry.Question(lang)),
			fmt.Sprintf("   A: %s", r.Entry.Answer(lang)),
			fmt.Sprintf("   (Relevance: %.2f)", r.Score),
		)
	}

	return strings.Join(parts, "\n")
}
