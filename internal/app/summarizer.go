package app

import (
	"context"
	"log"
	"strings"

	"docchat/internal/ai"
)

const (
	// SummaryEmptySentinel seeds conversations over documents with no
	// recoverable text.
	SummaryEmptySentinel = "There is no text to summarize in this document."
	// SummaryFailedSentinel replaces the synopsis when the model call fails.
	SummaryFailedSentinel = "A summary could not be generated for this document."

	summaryInstruction = "Summarize the following text in a few short sentences."
)

// Summarizer produces a short synopsis of extracted text. Summarization is
// advisory: it never returns an error and never blocks ingestion.
type Summarizer struct {
	llm CompletionProvider
	cfg ai.ChatConfig
}

func NewSummarizer(llm CompletionProvider, cfg ai.ChatConfig) *Summarizer {
	return &Summarizer{llm: llm, cfg: cfg}
}

// Summarize returns the model synopsis of text, or a fixed sentinel when the
// input is empty or the model call fails. Empty input skips the call entirely.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return SummaryEmptySentinel
	}

	messages := []ai.ChatMessage{
		{Role: "system", Content: summaryInstruction},
		{Role: "user", Content: text},
	}
	summary, err := s.llm.Complete(ctx, s.cfg, messages)
	if err != nil {
		log.Printf("summarize document failed: %v", err)
		return SummaryFailedSentinel
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return SummaryFailedSentinel
	}
	return summary
}
