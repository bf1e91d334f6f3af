package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actor = "203.0.113.7"

func TestGenerateAnswer_StreamsAndRecordsUsage(t *testing.T) {
	env := newTestEnv(t, newFakeGenerator("Goroutines ", "are cheap."))
	group := env.seedGroup(t, "golang")
	question := env.seedQuestion(t, group.ID, "What is a goroutine?", "Explain it simply")

	out := &chunkRecorder{}
	result, err := env.ai.GenerateAnswer(context.Background(), actor,
		&domain.GenerateAnswerRequest{QuestionID: question.ID, AdditionalContext: "beginner"}, out)
	require.NoError(t, err)

	assert.Equal(t, StreamCompleted, result.State)
	assert.Equal(t, []string{"Goroutines ", "are cheap."}, out.chunks)

	// 21 characters -> ceil(21/4) = 6 tokens
	assert.Equal(t, 6, result.Usage.TokensUsed)
	assert.True(t, result.Usage.Cost.Equal(decimal.RequireFromString("0.000012")), result.Usage.Cost.String())

	records, err := env.usage.List(context.Background(), domain.UsageFilter{ActorID: actor}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionGenerateAnswer, records[0].Action)
	assert.Equal(t, group.ID, records[0].GroupID)
	assert.Equal(t, question.ID, records[0].QuestionID)
	assert.Equal(t, "Goroutines are cheap.", records[0].Response)
	assert.Contains(t, records[0].Prompt, "What is a goroutine?")
	assert.Contains(t, records[0].Prompt, "beginner")

	require.Len(t, env.gen.streams, 1)
	assert.True(t, env.gen.streams[0].closed)
}

func TestGenerateAnswer_QuotaBoundary(t *testing.T) {
	env := newTestEnv(t, newFakeGenerator("unused"))
	group := env.seedGroup(t, "golang")
	question := env.seedQuestion(t, group.ID, "What is a channel?", "")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.usage.Create(context.Background(), &domain.UsageRecord{
			ActorID:    actor,
			Action:     domain.ActionGenerateAnswer,
			GroupID:    group.ID,
			QuestionID: question.ID,
			Cost:       decimal.Zero,
		}))
	}

	out := &chunkRecorder{}
	_, err := env.ai.GenerateAnswer(context.Background(), actor,
		&domain.GenerateAnswerRequest{QuestionID: question.ID}, out)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	assert.Zero(t, env.gen.calls())
	assert.Empty(t, out.chunks)
	assert.Equal(t, 3, env.countUsage(t, domain.UsageFilter{ActorID: actor, QuestionID: question.ID}))

	// the cap is per actor and per question
	other := env.seedQuestion(t, group.ID, "What is a select?", "")
	_, err = env.ai.GenerateAnswer(context.Background(), actor,
		&domain.GenerateAnswerRequest{QuestionID: other.ID}, &chunkRecorder{})
	require.NoError(t, err)

	_, err = env.ai.GenerateAnswer(context.Background(), "198.51.100.1",
		&domain.GenerateAnswerRequest{QuestionID: question.ID}, &chunkRecorder{})
	require.NoError(t, err)
}

func TestGenerateAnswer_PreStreamFailures(t *testing.T) {
	gen := newFakeGenerator("x")
	gen.unconfigured = true
	env := newTestEnv(t, gen)

	_, err := env.ai.GenerateAnswer(context.Background(), actor,
		&domain.GenerateAnswerRequest{QuestionID: "anything"}, &chunkRecorder{})
	require.ErrorIs(t, err, domain.ErrAINotConfigured)

	gen.unconfigured = false
	_, err = env.ai.GenerateAnswer(context.Background(), actor,
		&domain.GenerateAnswerRequest{QuestionID: "missing"}, &chunkRecorder{})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, gen.calls())
}

func TestGenerateQuestions_MidStreamErrorAppendsMarker(t *testing.T) {
	gen := newFakeGenerator("What is Go?\n", "Why use Go?\n", "never sent")
	gen.failAt = 2
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "golang")

	out := &chunkRecorder{}
	result, err := env.ai.GenerateQuestions(context.Background(), actor,
		&domain.GenerateQuestionRequest{GroupID: group.ID, Topic: "Go basics"}, out)
	require.NoError(t, err)

	assert.Equal(t, StreamErrored, result.State)
	assert.Equal(t, "What is Go?\nWhy use Go?\n"+StreamErrorMarker, out.text())
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))
	assert.Contains(t, gen.prompts[0].User, fmt.Sprintf("Generate %d questions", domain.DefaultQuestionCount))
}

func TestGenerateQuestions_OpenFailureWritesNothing(t *testing.T) {
	gen := newFakeGenerator()
	gen.openErr = fmt.Errorf("%w: status 401", domain.ErrUpstream)
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "golang")

	out := &chunkRecorder{}
	_, err := env.ai.GenerateQuestions(context.Background(), actor,
		&domain.GenerateQuestionRequest{GroupID: group.ID, Topic: "Go", Count: 9}, out)
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.Empty(t, out.chunks)
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))

	// count is clamped to the maximum
	assert.Contains(t, gen.prompts[0].User, fmt.Sprintf("Generate %d questions", domain.MaxQuestionCount))
}

func TestGenerateQuestions_RollingWindow(t *testing.T) {
	env := newTestEnv(t, newFakeGenerator("Q?"))
	group := env.seedGroup(t, "golang")
	ctx := context.Background()

	seed := func(n int, at time.Time) {
		for i := 0; i < n; i++ {
			require.NoError(t, env.usage.Create(ctx, &domain.UsageRecord{
				ActorID:   actor,
				Action:    domain.ActionGenerateQuestion,
				GroupID:   group.ID,
				Cost:      decimal.Zero,
				CreatedAt: at,
			}))
		}
	}

	// outside the 24h window
	seed(5, time.Now().Add(-25*time.Hour))
	seed(9, time.Now().Add(-time.Hour))

	req := &domain.GenerateQuestionRequest{GroupID: group.ID, Topic: "Go"}
	result, err := env.ai.GenerateQuestions(ctx, actor, req, &chunkRecorder{})
	require.NoError(t, err)
	assert.Equal(t, StreamCompleted, result.State)

	_, err = env.ai.GenerateQuestions(ctx, actor, req, &chunkRecorder{})
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, 1, env.gen.calls())
}

func TestGenerateAnswer_CancellationStopsConsumption(t *testing.T) {
	env := newTestEnv(t, newFakeGenerator("one ", "two ", "three ", "four"))
	group := env.seedGroup(t, "golang")
	question := env.seedQuestion(t, group.ID, "Cancel me?", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &chunkRecorder{onWrite: func(written int) {
		if written == 2 {
			cancel()
		}
	}}
	result, err := env.ai.GenerateAnswer(ctx, actor, &domain.GenerateAnswerRequest{QuestionID: question.ID}, out)
	require.NoError(t, err)

	assert.Equal(t, StreamCancelled, result.State)
	assert.Equal(t, []string{"one ", "two "}, out.chunks)

	stream := env.gen.streams[0]
	assert.Equal(t, 2, stream.received())
	assert.True(t, stream.closed)
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))
}

func TestFindSimilar_PreservesCandidateOrder(t *testing.T) {
	gen := newFakeGenerator()
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "web")
	ctx := context.Background()

	react := env.seedQuestion(t, group.ID, "What is React?", "A UI library question")
	next := env.seedQuestion(t, group.ID, "What is Next.js?", "A framework question")
	env.seedQuestion(t, group.ID, "How do I center a div?", "CSS again")

	candidates, err := env.questions.ListByGroup(ctx, group.ID, 100)
	require.NoError(t, err)
	var expected []string
	for _, q := range candidates {
		if q.ID == react.ID || q.ID == next.ID {
			expected = append(expected, q.ID)
		}
	}

	gen.reply = "What is Next.js?\nWhat is React?"
	resp, err := env.ai.FindSimilar(ctx, actor, &domain.SimilarQuestionsRequest{
		GroupID:      group.ID,
		QuestionText: "Which React framework should I learn?",
	})
	require.NoError(t, err)

	var got []string
	for _, q := range resp.SimilarQuestions {
		got = append(got, q.ID)
	}
	assert.Equal(t, expected, got)

	// 31 characters -> 8 tokens
	assert.Equal(t, 8, resp.Usage.TokensUsed)
	assert.Equal(t, 1, env.countUsage(t, domain.UsageFilter{ActorID: actor, Action: domain.ActionSimilarQuestions}))
	assert.Contains(t, gen.prompts[0].User, "What is React?")
}

func TestFindSimilar_NoMatchIsEmpty(t *testing.T) {
	gen := newFakeGenerator()
	gen.reply = "NONE"
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "web")
	env.seedQuestion(t, group.ID, "What is React?", "")

	resp, err := env.ai.FindSimilar(context.Background(), actor, &domain.SimilarQuestionsRequest{
		GroupID:      group.ID,
		QuestionText: "How do I bake bread?",
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.SimilarQuestions)
	assert.Empty(t, resp.SimilarQuestions)
	assert.Equal(t, 1, resp.Usage.TokensUsed)
}

func TestFindSimilar_EmptyGroupSkipsUpstream(t *testing.T) {
	gen := newFakeGenerator()
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "empty")

	resp, err := env.ai.FindSimilar(context.Background(), actor, &domain.SimilarQuestionsRequest{
		GroupID:      group.ID,
		QuestionText: "Anything here?",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.SimilarQuestions)
	assert.Zero(t, gen.calls())
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))
}

func TestFindSimilar_UpstreamError(t *testing.T) {
	gen := newFakeGenerator()
	gen.completeErr = fmt.Errorf("%w: timeout", domain.ErrUpstream)
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "web")
	env.seedQuestion(t, group.ID, "What is React?", "")

	_, err := env.ai.FindSimilar(context.Background(), actor, &domain.SimilarQuestionsRequest{
		GroupID:      group.ID,
		QuestionText: "React?",
	})
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))
}

func TestAI_PrivateGroupRequiresPassword(t *testing.T) {
	gen := newFakeGenerator("answer")
	gen.reply = "Confidential salary question"
	env := newTestEnv(t, gen)
	group := env.seedPrivateGroup(t, "payroll", "letmein")
	question := env.seedQuestion(t, group.ID, "Confidential salary question", "private body text")
	ctx := context.Background()

	_, err := env.ai.FindSimilar(ctx, actor, &domain.SimilarQuestionsRequest{
		GroupID:      group.ID,
		QuestionText: "salary",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.ai.GenerateAnswer(ctx, actor, &domain.GenerateAnswerRequest{QuestionID: question.ID}, &chunkRecorder{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.ai.GenerateQuestions(ctx, actor, &domain.GenerateQuestionRequest{
		GroupID:       group.ID,
		Topic:         "pay",
		GroupPassword: "wrong",
	}, &chunkRecorder{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// nothing about the group reached the generator
	assert.Zero(t, gen.calls())
	assert.Zero(t, env.countUsage(t, domain.UsageFilter{ActorID: actor}))

	resp, err := env.ai.FindSimilar(ctx, actor, &domain.SimilarQuestionsRequest{
		GroupID:       group.ID,
		QuestionText:  "salary",
		GroupPassword: "letmein",
	})
	require.NoError(t, err)
	require.Len(t, resp.SimilarQuestions, 1)
	assert.Equal(t, question.ID, resp.SimilarQuestions[0].ID)

	out := &chunkRecorder{}
	_, err = env.ai.GenerateAnswer(ctx, actor, &domain.GenerateAnswerRequest{
		QuestionID:    question.ID,
		GroupPassword: "letmein",
	}, out)
	require.NoError(t, err)
	assert.Equal(t, "answer", out.text())
}

func TestGenerateAnswer_ConcurrentRequestsShareQuota(t *testing.T) {
	gen := newFakeGenerator("slow answer")
	gen.openDelay = 100 * time.Millisecond
	env := newTestEnv(t, gen)
	group := env.seedGroup(t, "golang")
	question := env.seedQuestion(t, group.ID, "What is a mutex?", "")

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		allowed  int
		rejected int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.ai.GenerateAnswer(context.Background(), actor,
				&domain.GenerateAnswerRequest{QuestionID: question.ID}, &chunkRecorder{})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				allowed++
			case errors.Is(err, domain.ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 3, allowed)
	assert.Equal(t, callers-3, rejected)
	assert.Equal(t, 3, gen.calls())
	assert.Equal(t, 3, env.countUsage(t, domain.UsageFilter{ActorID: actor, QuestionID: question.ID}))

	// every reservation is released once its call ends
	assert.Zero(t, env.ai.gate.InFlight(QuotaCheck{
		ActorID:    actor,
		Action:     domain.ActionGenerateAnswer,
		QuestionID: question.ID,
	}))
}
