// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/password"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// FindUserByEmail возвращает пользователя по email или apperr.ErrNotFound.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser сохраняет пользователя в транзакции, которая фиксируется,
	// только если commit вернул nil.
	CreateUser(ctx context.Context, user models.User, commit func(models.User) error) (models.User, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AuthService отвечает за регистрацию, вход и проверку JWT.
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	jwtMaker jwt.Maker
	timeout  time.Duration
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService. timeout ограничивает
// каждое обращение к хранилищу.
func NewAuthService(users UserRepository, hasher PasswordHasher, jwtMaker jwt.Maker, timeout time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		jwtMaker: jwtMaker,
		timeout:  timeout,
		now:      time.Now,
	}
}

// SignUp регистрирует пользователя и выдаёт ему токен.
//
// Пользователь сохраняется только вместе с успешно подписанным токеном:
// если подпись не удалась, вставка откатывается.
func (s *AuthService) SignUp(ctx context.Context, name, email, rawPassword string) (string, models.User, error) {
	const op = "services.AuthService.SignUp"

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	email = normalizeEmail(email)
	existing, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return "", models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return "", models.User{}, apperr.Persistence(op, err)
	}

	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token string
	created, err := s.users.CreateUser(ctx, user, func(u models.User) error {
		signed, signErr := s.jwtMaker.GenerateToken(u.ID)
		if signErr != nil {
			return signErr
		}
		token = signed
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return "", models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrConflict)
		}
		return "", models.User{}, apperr.Persistence(op, err)
	}

	return token, created, nil
}

// SignIn проверяет учётные данные и выдаёт токен. Неизвестный email и неверный
// пароль неразличимы для клиента.
func (s *AuthService) SignIn(ctx context.Context, email, rawPassword string) (string, models.User, error) {
	const op = "services.AuthService.SignIn"

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
		}
		return "", models.User{}, apperr.Persistence(op, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", models.User{}, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
		}
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, *user, nil
}

// SignOut ничего не инвалидирует: токены stateless и действуют до истечения TTL.
func (s *AuthService) SignOut() {}

// Authenticate проверяет токен и возвращает идентификатор пользователя.
func (s *AuthService) Authenticate(token string) (uuid.UUID, error) {
	const op = "services.AuthService.Authenticate"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrUnauthorized, err)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	return id, nil
}

// storageContext ограничивает обращения к хранилищу таймаутом.
// Неположительный таймаут означает отсутствие ограничения.
func (s *AuthService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
