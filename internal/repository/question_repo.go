package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/liliang-cn/anonqa/internal/domain"
)

const questionColumns = `id, group_id, title, content, tags, password_hash, upvotes, downvotes,
	answer_count, is_ai_generated, created_at, updated_at`

// QuestionRepository handles question persistence
type QuestionRepository struct {
	db *DB
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create creates a new question
func (r *QuestionRepository) Create(ctx context.Context, question *domain.Question) error {
	if question.ID == "" {
		question.ID = uuid.New().String()
	}
	ts := now()
	question.CreatedAt = ts
	question.UpdatedAt = ts

	tagsJSON, _ := json.Marshal(nonNilTags(question.Tags))

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (id, group_id, title, content, tags, password_hash, upvotes, downvotes,
			answer_count, is_ai_generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?)
	`, question.ID, question.GroupID, question.Title, question.Content, string(tagsJSON),
		question.PasswordHash, boolToInt(question.IsAIGenerated), question.CreatedAt, question.UpdatedAt)

	return err
}

// Get retrieves a question by ID, returning nil when it does not exist
func (r *QuestionRepository) Get(ctx context.Context, id string) (*domain.Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	question, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return question, err
}

// ListByGroup retrieves up to limit questions of a group, newest first
func (r *QuestionRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]*domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE group_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []*domain.Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}

	return questions, rows.Err()
}

// Update updates a question's title, content and tags
func (r *QuestionRepository) Update(ctx context.Context, question *domain.Question) error {
	question.UpdatedAt = now()
	tagsJSON, _ := json.Marshal(nonNilTags(question.Tags))

	result, err := r.db.ExecContext(ctx, `
		UPDATE questions SET title = ?, content = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, question.Title, question.Content, string(tagsJSON), question.UpdatedAt, question.ID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("question not found: %s", question.ID)
	}

	return nil
}

// Delete deletes a question and, through the foreign key, its answers
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("question not found: %s", id)
	}

	return nil
}

// Vote applies one vote and returns the updated question
func (r *QuestionRepository) Vote(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Question, error) {
	column, err := voteColumn(direction)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `UPDATE questions SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, nil
	}

	return r.Get(ctx, id)
}

// Count returns the total number of questions
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

func scanQuestion(s scanner) (*domain.Question, error) {
	question := &domain.Question{}
	var tagsJSON string
	var aiGenerated int
	if err := s.Scan(&question.ID, &question.GroupID, &question.Title, &question.Content, &tagsJSON,
		&question.PasswordHash, &question.Upvotes, &question.Downvotes, &question.AnswerCount,
		&aiGenerated, &question.CreatedAt, &question.UpdatedAt); err != nil {
		return nil, err
	}

	question.IsAIGenerated = aiGenerated == 1
	if tagsJSON != "" {
		json.Unmarshal([]byte(tagsJSON), &question.Tags)
	}
	question.Tags = nonNilTags(question.Tags)

	return question, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func voteColumn(direction domain.VoteDirection) (string, error) {
	switch direction {
	case domain.VoteUp:
		return "upvotes", nil
	case domain.VoteDown:
		return "downvotes", nil
	default:
		return "", fmt.Errorf("%w: unknown vote direction %q", domain.ErrInvalidRequest, direction)
	}
}
