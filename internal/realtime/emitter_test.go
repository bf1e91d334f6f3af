package realtime

import (
	"strings"
	"testing"
	"time"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestEmitter(t *testing.T) (*Emitter, *Registry) {
	t.Helper()
	r := NewRegistry(nil)
	e := NewEmitter(NewBroadcaster(r, nil))
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e, r
}

func TestEmitter_QuestionCreatedOmitsSecrets(t *testing.T) {
	e, r := newTestEmitter(t)
	conn := newFakeSubscriber("c1")
	r.Join(conn, "g1")

	e.QuestionCreated(&domain.Question{
		ID:           "q1",
		GroupID:      "g1",
		Title:        "What is React?",
		Content:      "body",
		PasswordHash: "$2a$10$supersecrethash",
	})

	conn.mu.Lock()
	for _, raw := range conn.messages {
		require.False(t, strings.Contains(string(raw), "supersecrethash"))
		require.False(t, strings.Contains(strings.ToLower(string(raw)), "password"))
	}
	conn.mu.Unlock()

	require.Equal(t, []string{"question_created", "group_activity"}, conn.kinds(t))

	activity := conn.envelopes(t)[1]["data"].(map[string]any)
	require.Equal(t, "g1", activity["groupId"])
	require.Equal(t, "question", activity["entityType"])
	require.Equal(t, "created", activity["action"])
	require.Equal(t, "2026-01-02T03:04:05Z", activity["timestamp"])
}

func TestEmitter_AllKinds(t *testing.T) {
	e, r := newTestEmitter(t)
	conn := newFakeSubscriber("c1")
	r.Join(conn, "g1")

	q := &domain.Question{ID: "q1", GroupID: "g1", Upvotes: 2}
	a := &domain.Answer{ID: "a1", QuestionID: "q1", GroupID: "g1", PasswordHash: "secret"}

	e.QuestionUpdated(q)
	e.QuestionVoted(q)
	e.QuestionDeleted("g1", "q1")
	e.AnswerCreated(a)
	e.AnswerUpdated(a)
	e.AnswerVoted(a)
	e.AnswerAccepted("g1", "q1", "a1")
	e.AnswerDeleted("g1", "q1", "a1")

	var specific []string
	for i, kind := range conn.kinds(t) {
		if i%2 == 1 {
			require.Equal(t, "group_activity", kind)
			continue
		}
		specific = append(specific, kind)
	}
	require.Equal(t, []string{
		"question_updated", "question_voted", "question_deleted",
		"answer_created", "answer_updated", "answer_voted", "answer_accepted", "answer_deleted",
	}, specific)

	accepted := conn.envelopes(t)[12]["data"].(map[string]any)
	require.Equal(t, map[string]any{"groupId": "g1", "questionId": "q1", "answerId": "a1"}, accepted)
}

func TestEmitter_NilIsSafe(t *testing.T) {
	var e *Emitter
	require.NotPanics(t, func() {
		e.QuestionCreated(&domain.Question{ID: "q1", GroupID: "g1"})
	})

	noRegistry := NewEmitter(nil)
	require.NotPanics(t, func() {
		noRegistry.AnswerAccepted("g1", "q1", "a1")
	})
}
