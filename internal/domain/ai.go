package domain

// Limits on AI request parameters
const (
	DefaultQuestionCount = 3
	MaxQuestionCount     = 5
	DefaultSimilarLimit  = 5
	MaxSimilarLimit      = 10
)

// GenerateAnswerRequest asks for an AI answer to an existing question
type GenerateAnswerRequest struct {
	QuestionID        string `json:"questionId" binding:"required"`
	AdditionalContext string `json:"additionalContext,omitempty" binding:"max=2000"`
	// GroupPassword unlocks a private group; it is read from a header, never the body
	GroupPassword string `json:"-"`
}

// GenerateQuestionRequest asks for AI-suggested questions about a topic
type GenerateQuestionRequest struct {
	GroupID string `json:"groupId" binding:"required"`
	Topic   string `json:"topic" binding:"required,max=500"`
	Context string `json:"context,omitempty" binding:"max=2000"`
	Count   int    `json:"count,omitempty" binding:"omitempty,min=1,max=5"`

	GroupPassword string `json:"-"`
}

// SimilarQuestionsRequest asks for existing questions similar to a draft
type SimilarQuestionsRequest struct {
	GroupID      string `json:"groupId" binding:"required"`
	QuestionText string `json:"questionText" binding:"required,max=10000"`
	Limit        int    `json:"limit,omitempty" binding:"omitempty,min=1,max=10"`

	GroupPassword string `json:"-"`
}

// SimilarQuestionsResponse is the result of a similar-questions lookup
type SimilarQuestionsResponse struct {
	SimilarQuestions []SimilarQuestion `json:"similarQuestions"`
	Usage            Usage             `json:"usage"`
}
