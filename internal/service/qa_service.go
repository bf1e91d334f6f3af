package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/realtime"
	"github.com/liliang-cn/anonqa/internal/repository"
	"go.uber.org/zap"
)

// DefaultListLimit caps list endpoints when the caller gives no limit
const DefaultListLimit = 50

// QAService handles groups, questions and answers.
// Every committed mutation is announced through the emitter, which never fails the write.
type QAService struct {
	groupRepo    *repository.GroupRepository
	questionRepo *repository.QuestionRepository
	answerRepo   *repository.AnswerRepository
	emitter      *realtime.Emitter
	logger       *zap.Logger
}

// NewQAService creates a new Q&A service
func NewQAService(
	groupRepo *repository.GroupRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	emitter *realtime.Emitter,
	logger *zap.Logger,
) *QAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAService{
		groupRepo:    groupRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		emitter:      emitter,
		logger:       logger,
	}
}

// Group operations

func (s *QAService) CreateGroup(ctx context.Context, req *domain.CreateGroupRequest) (*domain.Group, error) {
	group := &domain.Group{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if group.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}

	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		group.IsPrivate = true
		group.PasswordHash = hash
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *QAService) ListGroups(ctx context.Context, limit, offset int) ([]*domain.Group, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.groupRepo.ListPublic(ctx, limit, offset)
}

// GetGroup returns a group's public metadata. Private groups are listed by id but their content is locked.
func (s *QAService) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	group, err := s.groupRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrNotFound
	}
	return group, nil
}

// VerifyGroupAccess checks the password of a private group
func (s *QAService) VerifyGroupAccess(ctx context.Context, id, password string) (*domain.Group, error) {
	return openGroup(ctx, s.groupRepo, id, password)
}

// Question operations

func (s *QAService) CreateQuestion(ctx context.Context, groupID, groupPassword string, req *domain.CreateQuestionRequest) (*domain.Question, error) {
	group, err := openGroup(ctx, s.groupRepo, groupID, groupPassword)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	question := &domain.Question{
		GroupID:       group.ID,
		Title:         strings.TrimSpace(req.Title),
		Content:       req.Content,
		Tags:          req.Tags,
		PasswordHash:  hash,
		IsAIGenerated: req.IsAIGenerated,
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, err
	}
	s.touch(ctx, group.ID)

	s.emitter.QuestionCreated(question)
	return question, nil
}

func (s *QAService) ListQuestions(ctx context.Context, groupID, groupPassword string, limit int) ([]*domain.Question, error) {
	if _, err := openGroup(ctx, s.groupRepo, groupID, groupPassword); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return s.questionRepo.ListByGroup(ctx, groupID, limit)
}

func (s *QAService) GetQuestion(ctx context.Context, id, groupPassword string) (*domain.Question, error) {
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := openGroup(ctx, s.groupRepo, question.GroupID, groupPassword); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QAService) UpdateQuestion(ctx context.Context, id string, req *domain.UpdateQuestionRequest) (*domain.Question, error) {
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(question.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		question.Title = title
	}
	if req.Content != "" {
		question.Content = req.Content
	}
	if req.Tags != nil {
		question.Tags = req.Tags
	}

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, err
	}

	s.emitter.QuestionUpdated(question)
	return question, nil
}

func (s *QAService) DeleteQuestion(ctx context.Context, id, password string) error {
	question, err := s.getQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := checkPassword(question.PasswordHash, password); err != nil {
		return err
	}

	if err := s.questionRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.emitter.QuestionDeleted(question.GroupID, question.ID)
	return nil
}

func (s *QAService) VoteQuestion(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Question, error) {
	question, err := s.questionRepo.Vote(ctx, id, direction)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, domain.ErrNotFound
	}

	s.emitter.QuestionVoted(question)
	return question, nil
}

// Answer operations

func (s *QAService) CreateAnswer(ctx context.Context, questionID, groupPassword string, req *domain.CreateAnswerRequest) (*domain.Answer, error) {
	question, err := s.GetQuestion(ctx, questionID, groupPassword)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		QuestionID:    question.ID,
		GroupID:       question.GroupID,
		Content:       req.Content,
		PasswordHash:  hash,
		IsAIGenerated: req.IsAIGenerated,
	}
	if err := s.answerRepo.Create(ctx, answer); err != nil {
		return nil, err
	}
	s.touch(ctx, question.GroupID)

	s.emitter.AnswerCreated(answer)
	return answer, nil
}

func (s *QAService) ListAnswers(ctx context.Context, questionID, groupPassword string) ([]*domain.Answer, error) {
	if _, err := s.GetQuestion(ctx, questionID, groupPassword); err != nil {
		return nil, err
	}
	return s.answerRepo.ListByQuestion(ctx, questionID)
}

func (s *QAService) UpdateAnswer(ctx context.Context, id string, req *domain.UpdateAnswerRequest) (*domain.Answer, error) {
	answer, err := s.getAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(answer.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	answer.Content = req.Content
	if err := s.answerRepo.Update(ctx, answer); err != nil {
		return nil, err
	}

	s.emitter.AnswerUpdated(answer)
	return answer, nil
}

func (s *QAService) DeleteAnswer(ctx context.Context, id, password string) error {
	answer, err := s.getAnswer(ctx, id)
	if err != nil {
		return err
	}
	if err := checkPassword(answer.PasswordHash, password); err != nil {
		return err
	}

	if err := s.answerRepo.Delete(ctx, answer); err != nil {
		return err
	}

	s.emitter.AnswerDeleted(answer.GroupID, answer.QuestionID, answer.ID)
	return nil
}

func (s *QAService) VoteAnswer(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Answer, error) {
	answer, err := s.answerRepo.Vote(ctx, id, direction)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, domain.ErrNotFound
	}

	s.emitter.AnswerVoted(answer)
	return answer, nil
}

// AcceptAnswer marks an answer as the accepted one. Only the question's author,
// proven by the question password, may accept.
func (s *QAService) AcceptAnswer(ctx context.Context, id, questionPassword string) (*domain.Answer, error) {
	answer, err := s.getAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	question, err := s.getQuestion(ctx, answer.QuestionID)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(question.PasswordHash, questionPassword); err != nil {
		return nil, err
	}

	if err := s.answerRepo.Accept(ctx, question.ID, answer.ID); err != nil {
		return nil, err
	}
	answer.IsAccepted = true

	// siblings are unaccepted in storage by now
	s.emitter.AnswerAccepted(question.GroupID, question.ID, answer.ID)
	return answer, nil
}

func (s *QAService) getQuestion(ctx context.Context, id string) (*domain.Question, error) {
	question, err := s.questionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, domain.ErrNotFound
	}
	return question, nil
}

func (s *QAService) getAnswer(ctx context.Context, id string) (*domain.Answer, error) {
	answer, err := s.answerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, domain.ErrNotFound
	}
	return answer, nil
}

func (s *QAService) touch(ctx context.Context, groupID string) {
	if err := s.groupRepo.Touch(ctx, groupID); err != nil {
		s.logger.Warn("failed to touch group", zap.String("group_id", groupID), zap.Error(err))
	}
}
