package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// CreateReminders сохраняет напоминания. Уже существующие пары
// (subscription_id, kind) пропускаются, возвращается число новых записей.
func (s *Storage) CreateReminders(ctx context.Context, reminders []models.Reminder) (int, error) {
	const op = "storage.CreateReminders"

	if len(reminders) == 0 {
		return 0, nil
	}

	b := s.qb.Insert("reminders").
		Columns("id", "subscription_id", "kind", "send_at")
	for _, r := range reminders {
		b = b.Values(r.ID, r.SubscriptionID, r.Kind, r.SendAt)
	}
	query, args, err := b.Suffix("ON CONFLICT (subscription_id, kind) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// ListDueReminders возвращает неотправленные напоминания с send_at <= now
// вместе с подпиской и контактами владельца.
func (s *Storage) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error) {
	const op = "storage.ListDueReminders"

	b := s.qb.Select(
		"r.id", "r.subscription_id", "r.kind", "r.send_at",
		"s.id", "s.name", "s.price", "s.currency", "s.frequency", "s.category", "s.payment_method",
		"s.status", "s.start_date", "s.renewal_date", "s.user_id", "s.created_at", "s.updated_at",
		"u.name", "u.email",
	).
		From("reminders r").
		Join("subscriptions s ON s.id = r.subscription_id").
		Join("users u ON u.id = s.user_id").
		Where(sq.Eq{"r.sent_at": nil}).
		Where(sq.LtOrEq{"r.send_at": now}).
		OrderBy("r.send_at ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]models.DueReminder, 0)
	for rows.Next() {
		var d models.DueReminder
		sub := &d.Subscription
		if err := rows.Scan(
			&d.ID, &d.SubscriptionID, &d.Kind, &d.SendAt,
			&sub.ID, &sub.Name, &sub.Price, &sub.Currency, &sub.Frequency, &sub.Category, &sub.PaymentMethod,
			&sub.Status, &sub.StartDate, &sub.RenewalDate, &sub.UserID, &sub.CreatedAt, &sub.UpdatedAt,
			&d.UserName, &d.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// MarkReminderSent отмечает напоминание отправленным.
func (s *Storage) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	const op = "storage.MarkReminderSent"

	query, args, err := s.qb.Update("reminders").
		Set("sent_at", sentAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.execAffectingOne(ctx, op, query, args)
}

// DeleteReminders удаляет напоминания подписки; при unsentOnly только
// неотправленные. Возвращает число удалённых записей.
func (s *Storage) DeleteReminders(ctx context.Context, subscriptionID uuid.UUID, unsentOnly bool) (int, error) {
	const op = "storage.DeleteReminders"

	b := s.qb.Delete("reminders").Where(sq.Eq{"subscription_id": subscriptionID})
	if unsentOnly {
		b = b.Where(sq.Eq{"sent_at": nil})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}
