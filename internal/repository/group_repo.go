package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/liliang-cn/anonqa/internal/domain"
)

const groupColumns = `g.id, g.name, g.description, g.is_private, g.password_hash, g.created_at, g.updated_at,
	(SELECT COUNT(*) FROM questions q WHERE q.group_id = g.id)`

// GroupRepository handles group persistence
type GroupRepository struct {
	db *DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create creates a new group
func (r *GroupRepository) Create(ctx context.Context, group *domain.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	ts := now()
	group.CreatedAt = ts
	group.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qa_groups (id, name, description, is_private, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.Description, boolToInt(group.IsPrivate), group.PasswordHash,
		group.CreatedAt, group.UpdatedAt)

	return err
}

// Get retrieves a group by ID, returning nil when it does not exist
func (r *GroupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM qa_groups g WHERE g.id = ?`, id)
	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return group, err
}

// ListPublic retrieves public groups, most recently active first
func (r *GroupRepository) ListPublic(ctx context.Context, limit, offset int) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+groupColumns+` FROM qa_groups g
		WHERE g.is_private = 0
		ORDER BY g.updated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*domain.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// Touch bumps a group's updated_at so activity sorts it first
func (r *GroupRepository) Touch(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE qa_groups SET updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("group not found: %s", id)
	}

	return nil
}

// Count returns the total number of groups
func (r *GroupRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qa_groups`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(s scanner) (*domain.Group, error) {
	group := &domain.Group{}
	var isPrivate int
	if err := s.Scan(&group.ID, &group.Name, &group.Description, &isPrivate, &group.PasswordHash,
		&group.CreatedAt, &group.UpdatedAt, &group.QuestionCount); err != nil {
		return nil, err
	}
	group.IsPrivate = isPrivate == 1
	return group, nil
}
