package domain

import "time"

// EventKind is the wire tag of a domain event
type EventKind string

const (
	EventQuestionCreated EventKind = "question_created"
	EventQuestionUpdated EventKind = "question_updated"
	EventQuestionDeleted EventKind = "question_deleted"
	EventQuestionVoted   EventKind = "question_voted"
	EventAnswerCreated   EventKind = "answer_created"
	EventAnswerUpdated   EventKind = "answer_updated"
	EventAnswerDeleted   EventKind = "answer_deleted"
	EventAnswerVoted     EventKind = "answer_voted"
	EventAnswerAccepted  EventKind = "answer_accepted"
	EventGroupActivity   EventKind = "group_activity"
)

// Event is a notification about a mutation inside one group.
// The set of implementations is closed: every payload is an explicit projection.
type Event interface {
	Kind() EventKind
	Group() string
	event()
}

// QuestionCreated is emitted after a question is stored
type QuestionCreated struct {
	GroupID  string       `json:"groupId"`
	Question QuestionView `json:"question"`
}

// QuestionUpdated is emitted after a question is edited
type QuestionUpdated struct {
	GroupID  string       `json:"groupId"`
	Question QuestionView `json:"question"`
}

// QuestionDeleted is emitted after a question is removed
type QuestionDeleted struct {
	GroupID    string `json:"groupId"`
	QuestionID string `json:"questionId"`
}

// QuestionVoted carries the new vote totals of a question
type QuestionVoted struct {
	GroupID    string `json:"groupId"`
	QuestionID string `json:"questionId"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
}

// AnswerCreated is emitted after an answer is stored
type AnswerCreated struct {
	GroupID    string     `json:"groupId"`
	QuestionID string     `json:"questionId"`
	Answer     AnswerView `json:"answer"`
}

// AnswerUpdated is emitted after an answer is edited
type AnswerUpdated struct {
	GroupID    string     `json:"groupId"`
	QuestionID string     `json:"questionId"`
	Answer     AnswerView `json:"answer"`
}

// AnswerDeleted is emitted after an answer is removed
type AnswerDeleted struct {
	GroupID    string `json:"groupId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// AnswerVoted carries the new vote totals of an answer
type AnswerVoted struct {
	GroupID    string `json:"groupId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
}

// AnswerAccepted is emitted once storage holds AnswerID as the only accepted answer of QuestionID
type AnswerAccepted struct {
	GroupID    string `json:"groupId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// GroupActivity is the lightweight "something changed" indicator
type GroupActivity struct {
	GroupID    string    `json:"groupId"`
	EntityType string    `json:"entityType"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

func (QuestionCreated) Kind() EventKind { return EventQuestionCreated }
func (QuestionUpdated) Kind() EventKind { return EventQuestionUpdated }
func (QuestionDeleted) Kind() EventKind { return EventQuestionDeleted }
func (QuestionVoted) Kind() EventKind   { return EventQuestionVoted }
func (AnswerCreated) Kind() EventKind   { return EventAnswerCreated }
func (AnswerUpdated) Kind() EventKind   { return EventAnswerUpdated }
func (AnswerDeleted) Kind() EventKind   { return EventAnswerDeleted }
func (AnswerVoted) Kind() EventKind     { return EventAnswerVoted }
func (AnswerAccepted) Kind() EventKind  { return EventAnswerAccepted }
func (GroupActivity) Kind() EventKind   { return EventGroupActivity }

func (e QuestionCreated) Group() string { return e.GroupID }
func (e QuestionUpdated) Group() string { return e.GroupID }
func (e QuestionDeleted) Group() string { return e.GroupID }
func (e QuestionVoted) Group() string   { return e.GroupID }
func (e AnswerCreated) Group() string   { return e.GroupID }
func (e AnswerUpdated) Group() string   { return e.GroupID }
func (e AnswerDeleted) Group() string   { return e.GroupID }
func (e AnswerVoted) Group() string     { return e.GroupID }
func (e AnswerAccepted) Group() string  { return e.GroupID }
func (e GroupActivity) Group() string   { return e.GroupID }

func (QuestionCreated) event() {}
func (QuestionUpdated) event() {}
func (QuestionDeleted) event() {}
func (QuestionVoted) event()   {}
func (AnswerCreated) event()   {}
func (AnswerUpdated) event()   {}
func (AnswerDeleted) event()   {}
func (AnswerVoted) event()     {}
func (AnswerAccepted) event()  {}
func (GroupActivity) event()   {}
