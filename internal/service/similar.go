package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/liliang-cn/anonqa/internal/domain"
)

const (
	// reply lines shorter than this are never matched
	minReplyLineLength  = 5
	contentPrefixLength = 50
)

var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)

// matchSimilar resolves a free-form reply against the candidates. It is best-effort:
// results keep candidate order regardless of reply order, and no match is an empty result.
func matchSimilar(reply string, candidates []*domain.Question, limit int) []*domain.Question {
	lines := replyLines(reply)
	matched := []*domain.Question{}
	if len(lines) == 0 {
		return matched
	}

	for _, q := range candidates {
		if limit > 0 && len(matched) >= limit {
			break
		}
		if matchesAny(q, lines) {
			matched = append(matched, q)
		}
	}
	return matched
}

func matchesAny(q *domain.Question, lines []string) bool {
	title := strings.ToLower(strings.TrimSpace(q.Title))
	prefix := strings.ToLower(strings.TrimSpace(runePrefix(q.Content, contentPrefixLength)))

	for _, line := range lines {
		if title != "" && (strings.Contains(line, title) || strings.Contains(title, line)) {
			return true
		}
		if prefix != "" && strings.Contains(line, prefix) {
			return true
		}
	}
	return false
}

func replyLines(reply string) []string {
	var lines []string
	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "\"'` ")
		if utf8.RuneCountInString(line) < minReplyLineLength {
			continue
		}
		lines = append(lines, strings.ToLower(line))
	}
	return lines
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
