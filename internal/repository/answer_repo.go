package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/liliang-cn/anonqa/internal/domain"
)

const answerColumns = `id, question_id, group_id, content, password_hash, upvotes, downvotes,
	is_accepted, is_ai_generated, created_at, updated_at`

// AnswerRepository handles answer persistence
type AnswerRepository struct {
	db *DB
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// Create stores an answer and bumps its question's answer count
func (r *AnswerRepository) Create(ctx context.Context, answer *domain.Answer) error {
	if answer.ID == "" {
		answer.ID = uuid.New().String()
	}
	ts := now()
	answer.CreatedAt = ts
	answer.UpdatedAt = ts

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO answers (id, question_id, group_id, content, password_hash, upvotes, downvotes,
				is_accepted, is_ai_generated, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?)
		`, answer.ID, answer.QuestionID, answer.GroupID, answer.Content, answer.PasswordHash,
			boolToInt(answer.IsAIGenerated), answer.CreatedAt, answer.UpdatedAt); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE questions SET answer_count = answer_count + 1 WHERE id = ?`, answer.QuestionID)
		return err
	})
}

// Get retrieves an answer by ID, returning nil when it does not exist
func (r *AnswerRepository) Get(ctx context.Context, id string) (*domain.Answer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = ?`, id)
	answer, err := scanAnswer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return answer, err
}

// ListByQuestion retrieves a question's answers, accepted first, then by score
func (r *AnswerRepository) ListByQuestion(ctx context.Context, questionID string) ([]*domain.Answer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE question_id = ?
		ORDER BY is_accepted DESC, (upvotes - downvotes) DESC, created_at ASC
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []*domain.Answer{}
	for rows.Next() {
		answer, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}

	return answers, rows.Err()
}

// Update updates an answer's content
func (r *AnswerRepository) Update(ctx context.Context, answer *domain.Answer) error {
	answer.UpdatedAt = now()

	result, err := r.db.ExecContext(ctx, `UPDATE answers SET content = ?, updated_at = ? WHERE id = ?`,
		answer.Content, answer.UpdatedAt, answer.ID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("answer not found: %s", answer.ID)
	}

	return nil
}

// Delete removes an answer and decrements its question's answer count
func (r *AnswerRepository) Delete(ctx context.Context, answer *domain.Answer) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, answer.ID)
		if err != nil {
			return err
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("answer not found: %s", answer.ID)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE questions SET answer_count = MAX(answer_count - 1, 0) WHERE id = ?
		`, answer.QuestionID)
		return err
	})
}

// Vote applies one vote and returns the updated answer
func (r *AnswerRepository) Vote(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Answer, error) {
	column, err := voteColumn(direction)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `UPDATE answers SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, nil
	}

	return r.Get(ctx, id)
}

// Accept marks answerID as the only accepted answer of questionID.
// Siblings are unaccepted in the same transaction.
func (r *AnswerRepository) Accept(ctx context.Context, questionID, answerID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE answers SET is_accepted = 0, updated_at = ?
			WHERE question_id = ? AND is_accepted = 1 AND id <> ?
		`, ts, questionID, answerID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE answers SET is_accepted = 1, updated_at = ?
			WHERE id = ? AND question_id = ?
		`, ts, answerID, questionID)
		if err != nil {
			return err
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: answer %s does not belong to question %s",
				domain.ErrNotFound, answerID, questionID)
		}
		return nil
	})
}

// Count returns the total number of answers
func (r *AnswerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&count)
	return count, err
}

func (r *AnswerRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanAnswer(s scanner) (*domain.Answer, error) {
	answer := &domain.Answer{}
	var accepted, aiGenerated int
	if err := s.Scan(&answer.ID, &answer.QuestionID, &answer.GroupID, &answer.Content,
		&answer.PasswordHash, &answer.Upvotes, &answer.Downvotes, &accepted, &aiGenerated,
		&answer.CreatedAt, &answer.UpdatedAt); err != nil {
		return nil, err
	}
	answer.IsAccepted = accepted == 1
	answer.IsAIGenerated = aiGenerated == 1
	return answer, nil
}
