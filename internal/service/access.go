package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// openGroup loads a group for reading. A private group also needs its password.
// Every path that exposes group content goes through here.
func openGroup(ctx context.Context, groups *repository.GroupRepository, id, password string) (*domain.Group, error) {
	group, err := groups.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrNotFound
	}
	if group.IsPrivate {
		if err := checkPassword(group.PasswordHash, password); err != nil {
			return nil, err
		}
	}
	return group, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", domain.ErrInvalidRequest)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) error {
	if hash == "" || password == "" {
		return domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.ErrUnauthorized
	}
	return nil
}
