package models

// FaqEntry is one question/answer pair from the support corpus. A single
// entry can carry both language variants; either side may be empty when the
// source sheet has no translation. The JSON keys follow the corpus file
// format, which predates this service.
type FaqEntry struct {
	ID         int    `json:"id"`
	Category   string `json:"category"`
	QuestionEN string `json:"question_en"`
	AnswerEN   string `json:"answer_en"`
	QuestionHI string `json:"question_hi"`
	AnswerHI   string `json:"answer_hi"`
}

// Question returns the entry's question in the requested language, falling
// back to the other language when the requested one is blank.
func (e FaqEntry) Question(lang Language) string {
	if lang == LanguageHindi {
		if e.QuestionHI != "" {
			return e.QuestionHI
		}
		return e.QuestionEN
	}
	if e.QuestionEN != "" {
		return e.QuestionEN
	}
	return e.QuestionHI
}

// Answer returns the entry's answer in the requested language with the same
// fallback behavior as Question.
func (e FaqEntry) Answer(lang Language) string {
	if lang == LanguageHindi {
		if e.AnswerHI != "" {
			return e.AnswerHI
		}
		return e.AnswerEN
	}
	if e.AnswerEN != "" {
		return e.AnswerEN
	}
	return e.AnswerHI
}

// RetrievalResult is one ranked hit from the FAQ index.
type RetrievalResult struct {
	Entry FaqEntry `json:"entry"`
	Score float64  `json:"score"`
}
