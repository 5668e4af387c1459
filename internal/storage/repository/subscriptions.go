package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var subscriptionColumns = []string{
	"id", "name", "price", "currency", "frequency", "category", "payment_method",
	"status", "start_date", "renewal_date", "user_id", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Currency, &s.Frequency, &s.Category, &s.PaymentMethod,
		&s.Status, &s.StartDate, &s.RenewalDate, &s.UserID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateSubscription сохраняет новую подписку.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"

	query, args, err := s.qb.Insert("subscriptions").
		Columns(subscriptionColumns...).
		Values(sub.ID, sub.Name, sub.Price, sub.Currency, sub.Frequency, sub.Category, sub.PaymentMethod,
			sub.Status, sub.StartDate, sub.RenewalDate, sub.UserID, sub.CreatedAt, sub.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscription возвращает подписку по идентификатору или apperr.ErrNotFound.
func (s *Storage) GetSubscription(ctx context.Context, id uuid.UUID) (models.Subscription, error) {
	const op = "storage.GetSubscription"

	query, args, err := s.qb.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.Subscription{}, notFoundOr(op, err)
	}
	return sub, nil
}

// ListSubscriptionsByOwner возвращает подписки владельца, новые первыми.
// Нулевой Limit означает выборку без ограничения.
func (s *Storage) ListSubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptionsByOwner"

	b := s.qb.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC")
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.querySubscriptions(ctx, op, query, args)
}

// ListUpcomingRenewals возвращает активные подписки владельца, продление которых
// попадает в полуинтервал [from, to), ближайшие первыми.
func (s *Storage) ListUpcomingRenewals(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]models.Subscription, error) {
	const op = "storage.ListUpcomingRenewals"

	query, args, err := s.qb.Select(subscriptionColumns...).
		From("subscriptions").
		Where(sq.Eq{"user_id": ownerID, "status": "active"}).
		Where(sq.GtOrEq{"renewal_date": from}).
		Where(sq.Lt{"renewal_date": to}).
		OrderBy("renewal_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.querySubscriptions(ctx, op, query, args)
}

func (s *Storage) querySubscriptions(ctx context.Context, op, query string, args []any) ([]models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]models.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"

	query, args, err := s.qb.Update("subscriptions").
		SetMap(map[string]any{
			"name":           sub.Name,
			"price":          sub.Price,
			"currency":       sub.Currency,
			"frequency":      sub.Frequency,
			"category":       sub.Category,
			"payment_method": sub.PaymentMethod,
			"status":         sub.Status,
			"start_date":     sub.StartDate,
			"renewal_date":   sub.RenewalDate,
			"updated_at":     sub.UpdatedAt,
		}).
		Where(sq.Eq{"id": sub.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.execAffectingOne(ctx, op, query, args)
}

// DeleteSubscription удаляет подписку вместе с её напоминаниями.
func (s *Storage) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteSubscription"

	query, args, err := s.qb.Delete("subscriptions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.execAffectingOne(ctx, op, query, args)
}

func (s *Storage) execAffectingOne(ctx context.Context, op, query string, args []any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return nil
}
