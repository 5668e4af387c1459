package subscriptiontracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/magabrotheeeer/subscription-tracker/docs" // swagger

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/mailer"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/password"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/migrations"
	"github.com/magabrotheeeer/subscription-tracker/internal/reminder"
	authservice "github.com/magabrotheeeer/subscription-tracker/internal/services/auth"
	reminderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// App - HTTP API сервиса подписок вместе с диспетчером напоминаний.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	cache      cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
	dispatcher *reminder.Dispatcher
}

// New подключает хранилище, кэш и брокер, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	subsCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = closeCache(subsCache)
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReminderQueues())
	if err != nil {
		_ = conn.Close()
		_ = closeCache(subsCache)
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	publisher := rabbitmq.NewPublisher(ch, rabbitmq.Exchange, rabbitmq.ReminderRoutingKey)
	dispatcher := reminder.NewDispatcher(logger, publisher, cfg.QueueSize, cfg.PublishTimeout)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, password.NewHasher(bcrypt.DefaultCost), jwtMaker, cfg.StorageTimeout)
	subscriptionService := subservice.NewSubscriptionService(db, subsCache, dispatcher, logger, subservice.Options{
		Timeout:     cfg.StorageTimeout,
		CacheTTL:    cfg.Cache.TTL,
		CallbackURL: cfg.Reminder.CallbackURL(),
	})
	reminderService := reminderservice.NewReminderService(db, mailer.New(cfg.Mailer.APIKey, cfg.Mailer.From, logger), logger, cfg.StorageTimeout)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:           authService,
		Subscriptions:  subscriptionService,
		Reminders:      reminderService,
		Health:         db,
		Limiter:        middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		WorkflowSecret: cfg.CallbackSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		cache:      subsCache,
		conn:       conn,
		ch:         ch,
		dispatcher: dispatcher,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер,
// дожидается публикации принятых событий и закрывает соединения.
func (a *App) Run(ctx context.Context) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.dispatcher.Run(dispatchCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	stopDispatch()
	<-dispatchDone
	a.close()
	return runErr
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := closeCache(a.cache); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}

// closeCache закрывает соединение кэша, если оно есть (Redis).
func closeCache(c cache.Cache) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
