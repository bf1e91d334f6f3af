package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/shopspring/decimal"
)

// UsageRepository persists AI usage records
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create stores a usage record
func (r *UsageRepository) Create(ctx context.Context, record *domain.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, actor_id, action, group_id, question_id, prompt, response,
			tokens_used, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.ActorID, string(record.Action), nullString(record.GroupID),
		nullString(record.QuestionID), record.Prompt, record.Response, record.TokensUsed,
		record.Cost.String(), record.CreatedAt.UTC())

	return err
}

// Count counts usage records matching the filter
func (r *UsageRepository) Count(ctx context.Context, filter domain.UsageFilter) (int, error) {
	where, args := usageWhere(filter)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_records`+where, args...).Scan(&count)
	return count, err
}

// List retrieves the most recent usage records matching the filter
func (r *UsageRepository) List(ctx context.Context, filter domain.UsageFilter, limit int) ([]*domain.UsageRecord, error) {
	where, args := usageWhere(filter)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, group_id, question_id, prompt, response, tokens_used, cost, created_at
		FROM usage_records`+where+`
		ORDER BY created_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.UsageRecord{}
	for rows.Next() {
		record := &domain.UsageRecord{}
		var action, cost string
		var groupID, questionID sql.NullString

		if err := rows.Scan(&record.ID, &record.ActorID, &action, &groupID, &questionID,
			&record.Prompt, &record.Response, &record.TokensUsed, &cost, &record.CreatedAt); err != nil {
			return nil, err
		}

		record.Action = domain.UsageAction(action)
		record.GroupID = groupID.String
		record.QuestionID = questionID.String
		record.Cost, _ = decimal.NewFromString(cost)
		records = append(records, record)
	}

	return records, rows.Err()
}

// Stats aggregates all usage records. Cost is summed in decimal to stay exact.
func (r *UsageRepository) Stats(ctx context.Context) (*domain.UsageStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tokens_used, cost FROM usage_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.UsageStats{Cost: decimal.Zero}
	for rows.Next() {
		var tokens int64
		var cost string
		if err := rows.Scan(&tokens, &cost); err != nil {
			return nil, err
		}
		stats.Records++
		stats.TokensUsed += tokens
		if d, err := decimal.NewFromString(cost); err == nil {
			stats.Cost = stats.Cost.Add(d)
		}
	}

	return stats, rows.Err()
}

func usageWhere(filter domain.UsageFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.QuestionID != "" {
		clauses = append(clauses, "question_id = ?")
		args = append(args, filter.QuestionID)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
