package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/repository"
	"github.com/stretchr/testify/require"
)

var errUpstreamReset = errors.New("upstream connection reset")

type fakeStream struct {
	chunks []string
	failAt int

	mu     sync.Mutex
	recvs  int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.recvs
	s.recvs++
	if s.failAt >= 0 && n == s.failAt {
		return "", errUpstreamReset
	}
	if n >= len(s.chunks) {
		return "", io.EOF
	}
	return s.chunks[n], nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvs
}

type fakeGenerator struct {
	unconfigured bool
	chunks       []string
	failAt       int
	openErr      error
	reply        string
	completeErr  error
	openDelay    time.Duration

	mu      sync.Mutex
	prompts []Prompt
	streams []*fakeStream
}

func newFakeGenerator(chunks ...string) *fakeGenerator {
	return &fakeGenerator{chunks: chunks, failAt: -1}
}

func (g *fakeGenerator) Configured() bool { return !g.unconfigured }

func (g *fakeGenerator) Stream(ctx context.Context, prompt Prompt) (TextStream, error) {
	if g.openDelay > 0 {
		time.Sleep(g.openDelay)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.openErr != nil {
		return nil, g.openErr
	}
	s := &fakeStream{chunks: g.chunks, failAt: g.failAt}
	g.streams = append(g.streams, s)
	return s, nil
}

func (g *fakeGenerator) Complete(ctx context.Context, prompt Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	return g.reply, g.completeErr
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type chunkRecorder struct {
	chunks  []string
	err     error
	onWrite func(written int)
}

func (r *chunkRecorder) WriteChunk(chunk string) error {
	if r.err != nil {
		return r.err
	}
	r.chunks = append(r.chunks, chunk)
	if r.onWrite != nil {
		r.onWrite(len(r.chunks))
	}
	return nil
}

func (r *chunkRecorder) text() string {
	return strings.Join(r.chunks, "")
}

type testEnv struct {
	groups    *repository.GroupRepository
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	usage     *repository.UsageRepository
	gen       *fakeGenerator
	ai        *AIService
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{CostPerToken: "0.000002"},
		Quota: config.QuotaConfig{
			AnswersPerQuestion:      3,
			QuestionsPerWindow:      10,
			QuestionWindow:          24 * time.Hour,
			SimilarCandidates:       100,
			SimilarPromptCandidates: 20,
		},
	}
}

func newTestEnv(t *testing.T, gen *fakeGenerator) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		groups:    repository.NewGroupRepository(db),
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		usage:     repository.NewUsageRepository(db),
		gen:       gen,
	}
	env.ai = NewAIService(testConfig(), env.groups, env.questions, env.usage, gen, nil)
	return env
}

func (e *testEnv) seedGroup(t *testing.T, name string) *domain.Group {
	t.Helper()
	group := &domain.Group{Name: name}
	require.NoError(t, e.groups.Create(context.Background(), group))
	return group
}

func (e *testEnv) seedPrivateGroup(t *testing.T, name, password string) *domain.Group {
	t.Helper()
	hash, err := hashPassword(password)
	require.NoError(t, err)
	group := &domain.Group{Name: name, IsPrivate: true, PasswordHash: hash}
	require.NoError(t, e.groups.Create(context.Background(), group))
	return group
}

func (e *testEnv) seedQuestion(t *testing.T, groupID, title, content string) *domain.Question {
	t.Helper()
	question := &domain.Question{GroupID: groupID, Title: title, Content: content, PasswordHash: "hash"}
	require.NoError(t, e.questions.Create(context.Background(), question))
	return question
}

func (e *testEnv) countUsage(t *testing.T, filter domain.UsageFilter) int {
	t.Helper()
	count, err := e.usage.Count(context.Background(), filter)
	require.NoError(t, err)
	return count
}
