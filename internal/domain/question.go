package domain

import "time"

// Question is a persisted question. PasswordHash never leaves the service.
type Question struct {
	ID            string
	GroupID       string
	Title         string
	Content       string
	Tags          []string
	PasswordHash  string
	Upvotes       int
	Downvotes     int
	AnswerCount   int
	IsAIGenerated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuestionView is the public projection of a question
type QuestionView struct {
	ID            string    `json:"id"`
	GroupID       string    `json:"groupId"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	AnswerCount   int       `json:"answerCount"`
	IsAIGenerated bool      `json:"isAiGenerated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// View projects the question for public display
func (q *Question) View() QuestionView {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	return QuestionView{
		ID:            q.ID,
		GroupID:       q.GroupID,
		Title:         q.Title,
		Content:       q.Content,
		Tags:          tags,
		Upvotes:       q.Upvotes,
		Downvotes:     q.Downvotes,
		AnswerCount:   q.AnswerCount,
		IsAIGenerated: q.IsAIGenerated,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// SimilarQuestion is the projection returned by the similar-questions lookup
type SimilarQuestion struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	AnswerCount int       `json:"answerCount"`
	Upvotes     int       `json:"upvotes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Similar projects the question for the similar-questions result
func (q *Question) Similar() SimilarQuestion {
	v := q.View()
	return SimilarQuestion{
		ID:          v.ID,
		Title:       v.Title,
		Content:     v.Content,
		Tags:        v.Tags,
		AnswerCount: v.AnswerCount,
		Upvotes:     v.Upvotes,
		CreatedAt:   v.CreatedAt,
	}
}

// Answer is a persisted answer. PasswordHash never leaves the service.
type Answer struct {
	ID            string
	QuestionID    string
	GroupID       string
	Content       string
	PasswordHash  string
	Upvotes       int
	Downvotes     int
	IsAccepted    bool
	IsAIGenerated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AnswerView is the public projection of an answer
type AnswerView struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"questionId"`
	GroupID       string    `json:"groupId"`
	Content       string    `json:"content"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	IsAccepted    bool      `json:"isAccepted"`
	IsAIGenerated bool      `json:"isAiGenerated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// View projects the answer for public display
func (a *Answer) View() AnswerView {
	return AnswerView{
		ID:            a.ID,
		QuestionID:    a.QuestionID,
		GroupID:       a.GroupID,
		Content:       a.Content,
		Upvotes:       a.Upvotes,
		Downvotes:     a.Downvotes,
		IsAccepted:    a.IsAccepted,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// VoteDirection is the direction of a vote
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// CreateQuestionRequest is the request to post a question
type CreateQuestionRequest struct {
	Title         string   `json:"title" binding:"required,max=200"`
	Content       string   `json:"content" binding:"required,max=10000"`
	Tags          []string `json:"tags,omitempty" binding:"max=5"`
	Password      string   `json:"password" binding:"required,min=4,max=72"`
	IsAIGenerated bool     `json:"isAiGenerated,omitempty"`
}

// UpdateQuestionRequest is the request to edit a question
type UpdateQuestionRequest struct {
	Title    string   `json:"title,omitempty" binding:"max=200"`
	Content  string   `json:"content,omitempty" binding:"max=10000"`
	Tags     []string `json:"tags,omitempty" binding:"max=5"`
	Password string   `json:"password" binding:"required"`
}

// CreateAnswerRequest is the request to post an answer
type CreateAnswerRequest struct {
	Content       string `json:"content" binding:"required,max=10000"`
	Password      string `json:"password" binding:"required,min=4,max=72"`
	IsAIGenerated bool   `json:"isAiGenerated,omitempty"`
}

// UpdateAnswerRequest is the request to edit an answer
type UpdateAnswerRequest struct {
	Content  string `json:"content" binding:"required,max=10000"`
	Password string `json:"password" binding:"required"`
}

// PasswordRequest carries a per-post password for delete and accept
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// VoteRequest is the request to vote on a question or answer
type VoteRequest struct {
	Direction VoteDirection `json:"direction" binding:"required,oneof=up down"`
}
