package services

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// defaultAnswerSystemPrompt is the fallback when no PromptStore is configured.
const defaultAnswerSystemPrompt = `You answer questions about technical documentation.
Answer strictly from the provided context. Cite passages by their [n] tag.
If the context does not contain the answer, say that the documentation does not cover it.`

// defaultAnswerPrompt expects the context and the question.
const defaultAnswerPrompt = `Context:
%s

Question: %s

Answer:`

// defaultFollowUpsPrompt expects the count, the question and unused context.
const defaultFollowUpsPrompt = `Suggest up to %d short follow-up questions a reader might ask next.
They must be answerable from the context below and differ from the original question.
Return one question per line, each starting with "- ".

Original question: %s

Context:
%s`

// loadPrompt returns the named template from store, or fallback when the
// store is nil or fails.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		if err != nil {
			logger.Debug("prompt %s: %v, using default", name, err)
		}
		return fallback
	}
	return prompt
}
