package domain

import (
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

func init() {
	// Usage dashboards read cost as a JSON number.
	decimal.MarshalJSONWithoutQuotes = true
}

// CharsPerToken is the fixed characters-per-token ratio used for estimation
const CharsPerToken = 4

// UsageAction identifies the AI operation a usage record accounts for
type UsageAction string

const (
	ActionGenerateAnswer   UsageAction = "generate_answer"
	ActionGenerateQuestion UsageAction = "generate_question"
	ActionSimilarQuestions UsageAction = "similar_questions"
)

// UsageRecord is one logged, successfully completed AI invocation
type UsageRecord struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     UsageAction     `json:"action"`
	GroupID    string          `json:"groupId,omitempty"`
	QuestionID string          `json:"questionId,omitempty"`
	Prompt     string          `json:"prompt"`
	Response   string          `json:"response"`
	TokensUsed int             `json:"tokensUsed"`
	Cost       decimal.Decimal `json:"cost"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// UsageFilter narrows the usage records counted by the quota gate.
// Empty QuestionID and zero Since mean "any".
type UsageFilter struct {
	ActorID    string
	Action     UsageAction
	QuestionID string
	Since      time.Time
}

// Usage is the token and cost accounting of one completion
type Usage struct {
	TokensUsed int             `json:"tokensUsed"`
	Cost       decimal.Decimal `json:"cost"`
}

// EstimateUsage computes tokens as ceil(length/4) and cost as tokens * rate.
// Length is measured in UTF-16 code units, matching browser clients that report
// string length, so a character outside the BMP counts twice.
func EstimateUsage(response string, ratePerToken decimal.Decimal) Usage {
	length := TextLength(response)
	tokens := (length + CharsPerToken - 1) / CharsPerToken
	return Usage{
		TokensUsed: tokens,
		Cost:       decimal.NewFromInt(int64(tokens)).Mul(ratePerToken),
	}
}

// TextLength returns the length of s in UTF-16 code units
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		if l := len(utf16.Encode([]rune{r})); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// UsageStats aggregates usage records
type UsageStats struct {
	Records    int             `json:"records"`
	TokensUsed int64           `json:"tokensUsed"`
	Cost       decimal.Decimal `json:"cost"`
}
