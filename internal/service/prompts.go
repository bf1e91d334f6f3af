package service

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/anonqa/internal/domain"
)

const answerSystemPrompt = `You are a knowledgeable assistant in an anonymous Q&A community.
Answer the question clearly and accurately. Use plain text or Markdown, and say so when you are unsure.`

const questionSystemPrompt = `You help an anonymous Q&A community start discussions.
Write concise, open-ended questions a curious member would ask.`

const similarSystemPrompt = `You compare questions in a Q&A community.
Reply only with titles copied exactly from the list you are given, one per line.`

func answerPrompt(q *domain.Question, additionalContext string) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n%s\n", q.Title, q.Content)
	if len(q.Tags) > 0 {
		fmt.Fprintf(&b, "\nTags: %s\n", strings.Join(q.Tags, ", "))
	}
	if ctx := strings.TrimSpace(additionalContext); ctx != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", ctx)
	}
	return Prompt{System: answerSystemPrompt, User: b.String()}
}

func questionPrompt(group *domain.Group, topic, context string, count int) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d questions about the topic: %s\n", count, topic)
	fmt.Fprintf(&b, "The questions will be posted in the group %q.\n", group.Name)
	if ctx := strings.TrimSpace(context); ctx != "" {
		fmt.Fprintf(&b, "Context: %s\n", ctx)
	}
	b.WriteString("Put each question on its own line.")
	return Prompt{System: questionSystemPrompt, User: b.String()}
}

func similarPrompt(questionText string, candidates []*domain.Question, limit int) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "New question:\n%s\n\nExisting questions:\n", questionText)
	for i, q := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Title)
	}
	fmt.Fprintf(&b, "\nList up to %d existing questions that ask essentially the same thing, most similar first. ", limit)
	b.WriteString("Reply NONE if no question is similar.")
	return Prompt{System: similarSystemPrompt, User: b.String()}
}
