package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// FindUserByEmail возвращает пользователя по email или apperr.ErrNotFound.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.FindUserByEmail"

	query := `SELECT id, name, email, password_hash, created_at, updated_at
			  FROM users
			  WHERE email = $1`
	var u models.User
	err := s.DB.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(op, err)
	}
	return &u, nil
}

// FindUserByID возвращает пользователя по идентификатору или apperr.ErrNotFound.
func (s *Storage) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.FindUserByID"

	query := `SELECT id, name, email, password_hash, created_at, updated_at
			  FROM users
			  WHERE id = $1`
	var u models.User
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(op, err)
	}
	return &u, nil
}

// CreateUser сохраняет пользователя и вызывает commit внутри одной транзакции.
// Транзакция фиксируется только если commit вернул nil; иначе вставка откатывается.
// Нарушение уникальности email возвращается как apperr.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User, commit func(models.User) error) (models.User, error) {
	const op = "storage.CreateUser"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrConflict)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := commit(user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
