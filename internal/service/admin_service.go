package service

import (
	"context"
	"fmt"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/realtime"
	"github.com/liliang-cn/anonqa/internal/repository"
)

// Bounds for the admin usage listing
const (
	DefaultUsageLimit = 50
	MaxUsageLimit     = 500
)

// AdminService handles admin operations
type AdminService struct {
	groupRepo    *repository.GroupRepository
	questionRepo *repository.QuestionRepository
	answerRepo   *repository.AnswerRepository
	usageRepo    *repository.UsageRepository
	hub          *realtime.Hub
}

// NewAdminService creates a new admin service
func NewAdminService(
	groupRepo *repository.GroupRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	usageRepo *repository.UsageRepository,
	hub *realtime.Hub,
) *AdminService {
	return &AdminService{
		groupRepo:    groupRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		usageRepo:    usageRepo,
		hub:          hub,
	}
}

// ListUsage returns the most recent usage records matching filter, plus the total match count
func (s *AdminService) ListUsage(ctx context.Context, filter domain.UsageFilter, limit int) (*domain.UsageListResponse, error) {
	switch filter.Action {
	case "", domain.ActionGenerateAnswer, domain.ActionGenerateQuestion, domain.ActionSimilarQuestions:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, filter.Action)
	}

	if limit <= 0 {
		limit = DefaultUsageLimit
	}
	if limit > MaxUsageLimit {
		limit = MaxUsageLimit
	}

	records, err := s.usageRepo.List(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.usageRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.UsageListResponse{Records: records, Total: total}, nil
}

// Stats

func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	groups, err := s.groupRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := s.answerRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := s.usageRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		TotalGroups:    groups,
		TotalQuestions: questions,
		TotalAnswers:   answers,
		Usage:          *usage,
	}
	if s.hub != nil {
		stats.Connections = s.hub.Connections()
		stats.ActiveRooms, _ = s.hub.Registry().Stats()
	}

	return stats, nil
}
