package service

import (
	"testing"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ids(questions []*domain.Question) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ID)
	}
	return out
}

func TestMatchSimilar(t *testing.T) {
	candidates := []*domain.Question{
		{ID: "react", Title: "What is React?", Content: "I keep hearing about React hooks and components."},
		{ID: "next", Title: "What is Next.js?", Content: "Is it a framework on top of React?"},
		{ID: "css", Title: "How do I center a div?", Content: "Flexbox confuses me"},
	}

	tests := []struct {
		name  string
		reply string
		limit int
		want  []string
	}{
		{"exact lines keep candidate order", "What is Next.js?\nWhat is React?", 5, []string{"react", "next"}},
		{"numbered and quoted lines", "1. \"What is React?\"\n2) What is Next.js?", 5, []string{"react", "next"}},
		{"case insensitive", "WHAT IS REACT?", 5, []string{"react"}},
		{"line contained in title", "center a div", 5, []string{"css"}},
		{"content prefix", "Maybe: I keep hearing about React hooks and components.", 5, []string{"react"}},
		{"limit", "What is React?\nWhat is Next.js?\nHow do I center a div?", 2, []string{"react", "next"}},
		{"short lines ignored", "Next\nNONE\n-", 5, []string{}},
		{"empty reply", "", 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(matchSimilar(tt.reply, candidates, tt.limit)))
		})
	}
}
