// Package services содержит бизнес-логику управления подписками:
// проверку прав, движок жизненного цикла, хранилище, кэш и запуск напоминаний.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/guard"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/subscription"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (models.Subscription, error)
	ListSubscriptionsByOwner(ctx context.Context, ownerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error)
	ListUpcomingRenewals(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
	DeleteReminders(ctx context.Context, subscriptionID uuid.UUID, unsentOnly bool) (int, error)
}

// Cache описывает методы для кэширования выборок.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

const initialGeneration = "0"

// Trigger ставит запуск workflow напоминаний в очередь без ожидания брокера.
type Trigger interface {
	Enqueue(req reminder.Request) (string, error)
}

// Options - параметры SubscriptionService.
type Options struct {
	// Timeout ограничивает каждое обращение к хранилищу.
	Timeout time.Duration
	// CacheTTL - время жизни закэшированных выборок.
	CacheTTL time.Duration
	// CallbackURL - адрес workflow напоминаний, передаваемый в событии.
	CallbackURL string
}

// SubscriptionService реализует бизнес-логику работы с подписками.
type SubscriptionService struct {
	repo    SubscriptionRepository
	cache   Cache
	trigger Trigger
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, cache Cache, trigger Trigger, log *slog.Logger, opts Options) *SubscriptionService {
	return &SubscriptionService{
		repo:    repo,
		cache:   cache,
		trigger: trigger,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// Create проверяет и сохраняет подписку владельца callerID, затем ставит в очередь
// запуск напоминаний. Сбой постановки не влияет на результат: подписка уже создана,
// а идентификатор запуска в этом случае пустой.
func (s *SubscriptionService) Create(ctx context.Context, callerID uuid.UUID, in models.SubscriptionInput) (models.Subscription, string, error) {
	const op = "services.SubscriptionService.Create"

	sub, err := subscription.Build(in, callerID, s.now().UTC())
	if err != nil {
		return models.Subscription{}, "", err
	}

	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.CreateSubscription(ctx, sub)
	}); err != nil {
		return models.Subscription{}, "", apperr.Persistence(op, err)
	}
	metrics.SubscriptionCreated()
	s.log.Info("created new subscription",
		slog.String("id", sub.ID.String()),
		slog.String("status", sub.Status),
	)
	s.invalidateOwner(ctx, sub.UserID)

	return sub, s.enqueue(sub.ID), nil
}

// ListByOwner возвращает подписки владельца requestedOwnerID. Права проверяются
// до любого обращения к кэшу или хранилищу.
func (s *SubscriptionService) ListByOwner(ctx context.Context, requestedOwnerID string, callerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error) {
	const op = "services.SubscriptionService.ListByOwner"

	if err := guard.AssertOwnerOrSelf(requestedOwnerID, callerID.String()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := cache.OwnerKey(callerID.String(), s.generation(ctx, callerID)+":"+filterKey(filter))
	var cached []models.Subscription
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	var res []models.Subscription
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repo.ListSubscriptionsByOwner(ctx, callerID, filter)
		return err
	}); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	if err := s.cache.Set(ctx, key, res, s.opts.CacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
	}
	return res, nil
}

// Get возвращает подписку id, если она принадлежит callerID. Чужая подписка
// неотличима от несуществующей.
func (s *SubscriptionService) Get(ctx context.Context, id string, callerID uuid.UUID) (models.Subscription, error) {
	const op = "services.SubscriptionService.Get"

	subID, err := uuid.Parse(id)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	var sub models.Subscription
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.repo.GetSubscription(ctx, subID)
		return err
	}); err != nil {
		return models.Subscription{}, apperr.Persistence(op, err)
	}

	if err := guard.AssertOwner(sub.UserID, callerID); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return sub, nil
}

// Update заменяет поля подписки id. Правила проверки те же, что при создании.
// Если изменились дата продления или статус, напоминания планируются заново.
func (s *SubscriptionService) Update(ctx context.Context, id string, callerID uuid.UUID, in models.SubscriptionInput) (models.Subscription, error) {
	const op = "services.SubscriptionService.Update"

	existing, err := s.Get(ctx, id, callerID)
	if err != nil {
		return models.Subscription{}, err
	}

	updated, err := subscription.Rebuild(existing, in, s.now().UTC())
	if err != nil {
		return models.Subscription{}, err
	}

	if err := s.save(ctx, updated); err != nil {
		return models.Subscription{}, apperr.Persistence(op, err)
	}

	if updated.Status != existing.Status || !updated.RenewalDate.Equal(existing.RenewalDate) {
		s.reschedule(ctx, existing, updated)
	}
	return updated, nil
}

// Cancel переводит подписку id в статус cancelled.
func (s *SubscriptionService) Cancel(ctx context.Context, id string, callerID uuid.UUID) (models.Subscription, error) {
	const op = "services.SubscriptionService.Cancel"

	existing, err := s.Get(ctx, id, callerID)
	if err != nil {
		return models.Subscription{}, err
	}

	cancelled, err := subscription.Cancel(existing, s.now().UTC())
	if err != nil {
		return models.Subscription{}, err
	}

	if err := s.save(ctx, cancelled); err != nil {
		return models.Subscription{}, apperr.Persistence(op, err)
	}
	s.log.Info("subscription cancelled", slog.String("id", cancelled.ID.String()))
	return cancelled, nil
}

// Delete удаляет подписку id.
func (s *SubscriptionService) Delete(ctx context.Context, id string, callerID uuid.UUID) error {
	const op = "services.SubscriptionService.Delete"

	existing, err := s.Get(ctx, id, callerID)
	if err != nil {
		return err
	}

	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.DeleteSubscription(ctx, existing.ID)
	}); err != nil {
		return apperr.Persistence(op, err)
	}
	s.invalidateOwner(ctx, existing.UserID)
	return nil
}

// UpcomingRenewals возвращает активные подписки callerID, продление которых
// наступит в ближайшие days дней.
func (s *SubscriptionService) UpcomingRenewals(ctx context.Context, callerID uuid.UUID, days int) ([]models.Subscription, error) {
	const op = "services.SubscriptionService.UpcomingRenewals"

	if days < 1 || days > 365 {
		return nil, apperr.NewValidation("days", "days must be between 1 and 365")
	}

	now := s.now().UTC()
	var res []models.Subscription
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repo.ListUpcomingRenewals(ctx, callerID, now, now.AddDate(0, 0, days))
		return err
	}); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return res, nil
}

func (s *SubscriptionService) save(ctx context.Context, sub models.Subscription) error {
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.UpdateSubscription(ctx, sub)
	}); err != nil {
		return err
	}
	s.invalidateOwner(ctx, sub.UserID)
	return nil
}

// reschedule сбрасывает напоминания подписки и ставит workflow в очередь заново.
// Новая дата продления открывает новый цикл, поэтому отправленные напоминания
// удаляются тоже. При смене только статуса отправленные сохраняются и не дублируются.
func (s *SubscriptionService) reschedule(ctx context.Context, before, after models.Subscription) {
	unsentOnly := after.RenewalDate.Equal(before.RenewalDate)

	var removed int
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.repo.DeleteReminders(ctx, after.ID, unsentOnly)
		return err
	}); err != nil {
		metrics.NotificationFailed(metrics.StageEnqueue)
		s.log.Warn("failed to reset reminders",
			slog.String("subscription_id", after.ID.String()),
			sl.Err(err),
		)
		return
	}
	s.log.Info("reminders reset",
		slog.String("subscription_id", after.ID.String()),
		slog.Int("removed", removed),
	)
	s.enqueue(after.ID)
}

// enqueue ставит запуск напоминаний в очередь. Сбой только логируется,
// идентификатор запуска в этом случае пустой.
func (s *SubscriptionService) enqueue(id uuid.UUID) string {
	runID, err := s.trigger.Enqueue(reminder.Request{URL: s.opts.CallbackURL, SubscriptionID: id})
	if err != nil {
		metrics.NotificationFailed(metrics.StageEnqueue)
		s.log.Warn("failed to enqueue reminder workflow",
			slog.String("subscription_id", id.String()),
			sl.Err(err),
		)
		return ""
	}
	return runID
}

func (s *SubscriptionService) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.opts.Timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return fn(ctx)
}

// generation возвращает текущее поколение кэша владельца. Выборка, прочитанная
// до записи, сохраняется под ключом старого поколения и больше не читается.
func (s *SubscriptionService) generation(ctx context.Context, ownerID uuid.UUID) string {
	key := cache.GenerationKey(ownerID.String())
	var gen string
	found, err := s.cache.Get(ctx, key, &gen)
	if err != nil {
		s.log.Warn("failed to read cache generation", slog.String("key", key), sl.Err(err))
	}
	if !found || gen == "" {
		return initialGeneration
	}
	return gen
}

// invalidateOwner начинает новое поколение кэша владельца и удаляет его выборки.
func (s *SubscriptionService) invalidateOwner(ctx context.Context, ownerID uuid.UUID) {
	genKey := cache.GenerationKey(ownerID.String())
	if err := s.cache.Set(ctx, genKey, uuid.NewString(), s.generationTTL()); err != nil {
		s.log.Warn("failed to bump cache generation", slog.String("key", genKey), sl.Err(err))
	}

	prefix := cache.OwnerPrefix(ownerID.String())
	if err := s.cache.Invalidate(ctx, prefix); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("prefix", prefix), sl.Err(err))
	}
}

// generationTTL переживает любую выборку, записанную под прежним поколением.
func (s *SubscriptionService) generationTTL() time.Duration {
	return 2 * s.opts.CacheTTL
}

func filterKey(f models.ListFilter) string {
	status := f.Status
	if status == "" {
		status = "all"
	}
	return status + ":" + strconv.Itoa(f.Limit) + ":" + strconv.Itoa(f.Offset)
}
