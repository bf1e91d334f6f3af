package service

import (
	"context"
	"fmt"

	"github.com/liliang-cn/anonqa/internal/config"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/metrics"
	"github.com/liliang-cn/anonqa/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StreamResult reports how a streamed completion ended
type StreamResult struct {
	State StreamState
	Usage domain.Usage
}

// AIService proxies metered completions from the generative service to clients
type AIService struct {
	quota        config.QuotaConfig
	rate         decimal.Decimal
	groupRepo    *repository.GroupRepository
	questionRepo *repository.QuestionRepository
	usageRepo    *repository.UsageRepository
	gate         *UsageGate
	generator    Generator
	logger       *zap.Logger
}

// NewAIService creates a new AI service
func NewAIService(
	cfg *config.Config,
	groupRepo *repository.GroupRepository,
	questionRepo *repository.QuestionRepository,
	usageRepo *repository.UsageRepository,
	generator Generator,
	logger *zap.Logger,
) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIService{
		quota:        cfg.Quota,
		rate:         cfg.CostPerToken(),
		groupRepo:    groupRepo,
		questionRepo: questionRepo,
		usageRepo:    usageRepo,
		gate:         NewUsageGate(usageRepo, logger),
		generator:    generator,
		logger:       logger,
	}
}

// completion is one metered upstream call
type completion struct {
	actorID    string
	action     domain.UsageAction
	groupID    string
	questionID string
	prompt     Prompt
}

// GenerateAnswer streams an answer to an existing question into out.
// A returned error means nothing was written to out. The quota reservation is
// held until the usage record is written.
func (s *AIService) GenerateAnswer(ctx context.Context, actorID string, req *domain.GenerateAnswerRequest, out ChunkWriter) (*StreamResult, error) {
	if !s.generator.Configured() {
		return nil, domain.ErrAINotConfigured
	}

	question, err := s.questionRepo.Get(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := openGroup(ctx, s.groupRepo, question.GroupID, req.GroupPassword); err != nil {
		return nil, err
	}

	release, err := s.gate.Enforce(ctx, QuotaCheck{
		ActorID:    actorID,
		Action:     domain.ActionGenerateAnswer,
		QuestionID: question.ID,
		Limit:      s.quota.AnswersPerQuestion,
	})
	if err != nil {
		return nil, err
	}
	defer release()

	return s.stream(ctx, completion{
		actorID:    actorID,
		action:     domain.ActionGenerateAnswer,
		groupID:    question.GroupID,
		questionID: question.ID,
		prompt:     answerPrompt(question, req.AdditionalContext),
	}, out)
}

// GenerateQuestions streams suggested questions about a topic into out.
// A returned error means nothing was written to out.
func (s *AIService) GenerateQuestions(ctx context.Context, actorID string, req *domain.GenerateQuestionRequest, out ChunkWriter) (*StreamResult, error) {
	if !s.generator.Configured() {
		return nil, domain.ErrAINotConfigured
	}

	group, err := openGroup(ctx, s.groupRepo, req.GroupID, req.GroupPassword)
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = domain.DefaultQuestionCount
	}
	if count > domain.MaxQuestionCount {
		count = domain.MaxQuestionCount
	}

	release, err := s.gate.Enforce(ctx, QuotaCheck{
		ActorID: actorID,
		Action:  domain.ActionGenerateQuestion,
		Window:  s.quota.QuestionWindow,
		Limit:   s.quota.QuestionsPerWindow,
	})
	if err != nil {
		return nil, err
	}
	defer release()

	return s.stream(ctx, completion{
		actorID: actorID,
		action:  domain.ActionGenerateQuestion,
		groupID: group.ID,
		prompt:  questionPrompt(group, req.Topic, req.Context, count),
	}, out)
}

// FindSimilar asks the generative service which existing questions of a group match a draft
func (s *AIService) FindSimilar(ctx context.Context, actorID string, req *domain.SimilarQuestionsRequest) (*domain.SimilarQuestionsResponse, error) {
	if !s.generator.Configured() {
		return nil, domain.ErrAINotConfigured
	}

	group, err := openGroup(ctx, s.groupRepo, req.GroupID, req.GroupPassword)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultSimilarLimit
	}
	if limit > domain.MaxSimilarLimit {
		limit = domain.MaxSimilarLimit
	}

	// not quota capped: the candidate cap bounds the cost instead
	release, err := s.gate.Enforce(ctx, QuotaCheck{ActorID: actorID, Action: domain.ActionSimilarQuestions})
	if err != nil {
		return nil, err
	}
	defer release()

	resp := &domain.SimilarQuestionsResponse{
		SimilarQuestions: []domain.SimilarQuestion{},
		Usage:            domain.Usage{Cost: decimal.Zero},
	}

	candidates, err := s.questionRepo.ListByGroup(ctx, group.ID, s.quota.SimilarCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate questions: %w", err)
	}
	if len(candidates) == 0 {
		return resp, nil
	}
	if n := s.quota.SimilarPromptCandidates; n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}

	c := completion{
		actorID: actorID,
		action:  domain.ActionSimilarQuestions,
		groupID: group.ID,
		prompt:  similarPrompt(req.QuestionText, candidates, limit),
	}

	reply, err := s.generator.Complete(ctx, c.prompt)
	if err != nil {
		if ctx.Err() != nil {
			metrics.Completions.WithLabelValues(string(c.action), StreamCancelled.String()).Inc()
			return nil, ctx.Err()
		}
		metrics.Completions.WithLabelValues(string(c.action), StreamErrored.String()).Inc()
		s.logger.Warn("similar questions lookup failed", zap.String("group_id", group.ID), zap.Error(err))
		return nil, err
	}
	metrics.Completions.WithLabelValues(string(c.action), StreamCompleted.String()).Inc()

	for _, q := range matchSimilar(reply, candidates, limit) {
		resp.SimilarQuestions = append(resp.SimilarQuestions, q.Similar())
	}
	resp.Usage = s.record(ctx, c, reply)

	return resp, nil
}

func (s *AIService) stream(ctx context.Context, c completion, out ChunkWriter) (*StreamResult, error) {
	logger := s.logger.With(
		zap.String("action", string(c.action)),
		zap.String("actor", c.actorID),
		zap.String("group_id", c.groupID),
	)

	session := newStreamSession(ctx, out, logger)
	state := session.run(s.generator, c.prompt)
	metrics.Completions.WithLabelValues(string(c.action), state.String()).Inc()

	result := &StreamResult{State: state, Usage: domain.Usage{Cost: decimal.Zero}}
	switch state {
	case StreamCompleted:
		result.Usage = s.record(ctx, c, session.Response())
	case StreamErrored:
		if !session.opened {
			return nil, session.err
		}
	}
	return result, nil
}

// record persists the usage of a completed call. The client may already be gone,
// so the write does not inherit its cancellation.
func (s *AIService) record(ctx context.Context, c completion, response string) domain.Usage {
	usage := domain.EstimateUsage(response, s.rate)
	metrics.TokensUsed.WithLabelValues(string(c.action)).Add(float64(usage.TokensUsed))

	rec := &domain.UsageRecord{
		ActorID:    c.actorID,
		Action:     c.action,
		GroupID:    c.groupID,
		QuestionID: c.questionID,
		Prompt:     c.prompt.User,
		Response:   response,
		TokensUsed: usage.TokensUsed,
		Cost:       usage.Cost,
	}
	if err := s.usageRepo.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("failed to record usage",
			zap.String("action", string(c.action)),
			zap.String("actor", c.actorID),
			zap.Error(err),
		)
	}
	return usage
}
