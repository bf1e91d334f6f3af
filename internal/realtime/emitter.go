package realtime

import (
	"time"

	"github.com/liliang-cn/anonqa/internal/domain"
)

// Entity types and actions reported in group_activity events
const (
	EntityQuestion = "question"
	EntityAnswer   = "answer"

	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionVoted    = "voted"
	ActionAccepted = "accepted"
)

// Emitter shapes question and answer mutations into domain events.
// Call it only after the storage write has committed; it never reports failure.
type Emitter struct {
	broadcaster *Broadcaster
	now         func() time.Time
}

// NewEmitter creates an emitter publishing through b
func NewEmitter(b *Broadcaster) *Emitter {
	return &Emitter{broadcaster: b, now: time.Now}
}

// QuestionCreated announces a new question to its group
func (e *Emitter) QuestionCreated(q *domain.Question) {
	e.publish(domain.QuestionCreated{GroupID: q.GroupID, Question: q.View()}, EntityQuestion, ActionCreated)
}

// QuestionUpdated announces an edited question
func (e *Emitter) QuestionUpdated(q *domain.Question) {
	e.publish(domain.QuestionUpdated{GroupID: q.GroupID, Question: q.View()}, EntityQuestion, ActionUpdated)
}

// QuestionDeleted announces a removed question by id
func (e *Emitter) QuestionDeleted(groupID, questionID string) {
	e.publish(domain.QuestionDeleted{GroupID: groupID, QuestionID: questionID}, EntityQuestion, ActionDeleted)
}

// QuestionVoted announces the new vote totals of a question
func (e *Emitter) QuestionVoted(q *domain.Question) {
	e.publish(domain.QuestionVoted{
		GroupID:    q.GroupID,
		QuestionID: q.ID,
		Upvotes:    q.Upvotes,
		Downvotes:  q.Downvotes,
	}, EntityQuestion, ActionVoted)
}

// AnswerCreated announces a new answer to the question's group
func (e *Emitter) AnswerCreated(a *domain.Answer) {
	e.publish(domain.AnswerCreated{GroupID: a.GroupID, QuestionID: a.QuestionID, Answer: a.View()}, EntityAnswer, ActionCreated)
}

// AnswerUpdated announces an edited answer
func (e *Emitter) AnswerUpdated(a *domain.Answer) {
	e.publish(domain.AnswerUpdated{GroupID: a.GroupID, QuestionID: a.QuestionID, Answer: a.View()}, EntityAnswer, ActionUpdated)
}

// AnswerDeleted announces a removed answer by id
func (e *Emitter) AnswerDeleted(groupID, questionID, answerID string) {
	e.publish(domain.AnswerDeleted{GroupID: groupID, QuestionID: questionID, AnswerID: answerID}, EntityAnswer, ActionDeleted)
}

// AnswerVoted announces the new vote totals of an answer
func (e *Emitter) AnswerVoted(a *domain.Answer) {
	e.publish(domain.AnswerVoted{
		GroupID:    a.GroupID,
		QuestionID: a.QuestionID,
		AnswerID:   a.ID,
		Upvotes:    a.Upvotes,
		Downvotes:  a.Downvotes,
	}, EntityAnswer, ActionVoted)
}

// AnswerAccepted must only be called once storage has unaccepted every sibling answer
func (e *Emitter) AnswerAccepted(groupID, questionID, answerID string) {
	e.publish(domain.AnswerAccepted{GroupID: groupID, QuestionID: questionID, AnswerID: answerID}, EntityAnswer, ActionAccepted)
}

// publish sends evt and then the group_activity summary for the same room
func (e *Emitter) publish(evt domain.Event, entity, action string) {
	if e == nil {
		return
	}
	e.broadcaster.Broadcast(evt)
	e.broadcaster.Broadcast(domain.GroupActivity{
		GroupID:    evt.Group(),
		EntityType: entity,
		Action:     action,
		Timestamp:  e.now().UTC(),
	})
}
