package rag

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// NotFoundAnswer is the reply the model is instructed to give when the
// context does not contain the answer.
const NotFoundAnswer = "Not found in docs."

const answerSystemPrompt = `You are DocSense, a senior technical documentation assistant.

Use ONLY the retrieved context to answer.
If the answer is not found, reply with: "%s"

Format your answer cleanly with bullets, tables, or code blocks.
CONTEXT:
%s
`

const suggestPrompt = `Based on the following document excerpt, generate 5 short, specific questions that a user might ask about this document.
Return ONLY the questions, one per line. Do not number them.

DOCUMENT EXCERPT:
%s

QUESTIONS:
`

const (
	suggestSegments = 3
	suggestMaxChars = 4000
	maxSuggestions  = 5
	maxHistoryTurns = 10
)

// joinContext concatenates retrieved chunk texts, blank-line separated.
func joinContext(results []vectordb.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Record.Text
	}
	return strings.Join(texts, "\n\n")
}

// answerMessages builds the system instruction, the most recent history
// turns and the question, in that order.
func answerMessages(context string, history []Turn, question string) []llm.Message {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: fmt.Sprintf(answerSystemPrompt, NotFoundAnswer, context)})
	for _, t := range history {
		if t.Role != llm.RoleUser && t.Role != llm.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// parseQuestions keeps the lines of raw that end in a question mark, with
// any list markers removed, up to maxSuggestions.
func parseQuestions(raw string) []string {
	questions := make([]string, 0, maxSuggestions)
	for _, line := range strings.Split(raw, "\n") {
		q := stripListMarker(strings.TrimSpace(line))
		if q == "" || !strings.HasSuffix(q, "?") {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxSuggestions {
			break
		}
	}
	return questions
}

// stripListMarker removes a leading "-", "*", "•", "1." or "1)" marker.
func stripListMarker(s string) string {
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(s, bullet) {
			return strings.TrimSpace(s[len(bullet):])
		}
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
