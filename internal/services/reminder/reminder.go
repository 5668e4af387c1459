// Package services содержит бизнес-логику workflow напоминаний: планирование
// писем перед датой продления и отправку наступивших.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/mailer"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/subscription"
)

// ReminderDays - за сколько дней до продления отправляются напоминания.
var ReminderDays = []int{7, 5, 2, 1}

// Kind возвращает тип напоминания за days дней до продления.
func Kind(days int) string {
	return fmt.Sprintf("%d_days_before", days)
}

// Результат планирования.
const (
	StatusScheduled = "scheduled"
	StatusSkipped   = "skipped"
)

// ReminderRepository определяет методы хранилища, нужные workflow.
type ReminderRepository interface {
	GetSubscription(ctx context.Context, id uuid.UUID) (models.Subscription, error)
	CreateReminders(ctx context.Context, reminders []models.Reminder) (int, error)
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// ScheduleResult - итог запуска workflow для подписки.
type ScheduleResult struct {
	Status    string   `json:"status"`
	Scheduled []string `json:"scheduled"`
}

// ReminderService планирует и отправляет напоминания.
type ReminderService struct {
	repo    ReminderRepository
	mailer  mailer.Sender
	log     *slog.Logger
	timeout time.Duration
	batch   int
	now     func() time.Time
}

// NewReminderService создает новый экземпляр ReminderService.
func NewReminderService(repo ReminderRepository, sender mailer.Sender, log *slog.Logger, timeout time.Duration) *ReminderService {
	return &ReminderService{
		repo:    repo,
		mailer:  sender,
		log:     log,
		timeout: timeout,
		batch:   100,
		now:     time.Now,
	}
}

// Schedule создаёт напоминания для подписки subscriptionID. Если подписка не активна
// или дата продления прошла, запуск завершается без напоминаний. Напоминания,
// время которых уже прошло, пропускаются; повторный запуск не создаёт дублей.
func (s *ReminderService) Schedule(ctx context.Context, subscriptionID string) (ScheduleResult, error) {
	const op = "services.ReminderService.Schedule"

	id, err := uuid.Parse(subscriptionID)
	if err != nil {
		return ScheduleResult{}, apperr.NewValidation("subscriptionId", "subscriptionId must be a valid id")
	}

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return ScheduleResult{}, apperr.Persistence(op, err)
	}

	now := s.now().UTC()
	if sub.Status != subscription.StatusActive || sub.RenewalDate.Before(now) {
		s.log.Info("renewal date has passed or subscription is inactive, stopping workflow",
			slog.String("subscription_id", sub.ID.String()),
			slog.String("status", sub.Status),
		)
		return ScheduleResult{Status: StatusSkipped, Scheduled: []string{}}, nil
	}

	reminders := make([]models.Reminder, 0, len(ReminderDays))
	kinds := make([]string, 0, len(ReminderDays))
	for _, days := range ReminderDays {
		sendAt := sub.RenewalDate.AddDate(0, 0, -days)
		if !sendAt.After(now) {
			continue
		}
		reminders = append(reminders, models.Reminder{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			Kind:           Kind(days),
			SendAt:         sendAt,
		})
		kinds = append(kinds, Kind(days))
	}

	n, err := s.repo.CreateReminders(ctx, reminders)
	if err != nil {
		return ScheduleResult{}, apperr.Persistence(op, err)
	}
	metrics.RemindersScheduled(n)
	s.log.Info("reminders scheduled",
		slog.String("subscription_id", sub.ID.String()),
		slog.Int("created", n),
	)

	return ScheduleResult{Status: StatusScheduled, Scheduled: kinds}, nil
}

// DispatchDue отправляет наступившие напоминания и возвращает число отправленных писем.
//
// Напоминание отмечается отправленным до отправки письма: сбой почты не приводит
// к повторной отправке. Напоминания по неактивным подпискам закрываются без письма.
func (s *ReminderService) DispatchDue(ctx context.Context) (int, error) {
	const op = "services.ReminderService.DispatchDue"

	now := s.now().UTC()
	var due []models.DueReminder
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		due, err = s.repo.ListDueReminders(ctx, now, s.batch)
		return err
	})
	if err != nil {
		return 0, apperr.Persistence(op, err)
	}

	sent := 0
	for _, d := range due {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		log := s.log.With(
			slog.String("reminder_id", d.ID.String()),
			slog.String("subscription_id", d.SubscriptionID.String()),
			slog.String("kind", d.Kind),
		)

		if err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.repo.MarkReminderSent(ctx, d.ID, now)
		}); err != nil {
			log.Error("failed to mark reminder as sent", sl.Err(err))
			continue
		}

		if d.Subscription.Status != subscription.StatusActive {
			log.Info("subscription is not active, reminder dropped")
			continue
		}

		if _, err := s.mailer.SendReminder(ctx, toMail(d, now)); err != nil {
			metrics.NotificationFailed(metrics.StageMail)
			log.Error("failed to send reminder email", sl.Err(err))
			continue
		}
		metrics.ReminderSent()
		sent++
	}

	return sent, nil
}

func (s *ReminderService) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()
	return fn(ctx)
}

// storageContext ограничивает обращения к хранилищу таймаутом.
// Неположительный таймаут означает отсутствие ограничения.
func (s *ReminderService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func toMail(d models.DueReminder, now time.Time) mailer.Reminder {
	daysLeft := int(d.Subscription.RenewalDate.Sub(now).Hours()/24 + 0.5)
	if daysLeft < 1 {
		daysLeft = 1
	}
	return mailer.Reminder{
		To:               d.UserEmail,
		UserName:         d.UserName,
		SubscriptionName: d.Subscription.Name,
		Price:            d.Subscription.Price,
		Currency:         d.Subscription.Currency,
		Frequency:        d.Subscription.Frequency,
		PaymentMethod:    d.Subscription.PaymentMethod,
		RenewalDate:      d.Subscription.RenewalDate,
		DaysLeft:         daysLeft,
	}
}
