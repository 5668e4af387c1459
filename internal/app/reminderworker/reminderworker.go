// Package reminderworker собирает фоновый процесс напоминаний: потребителя
// очереди событий workflow и периодическую рассылку писем.
package reminderworker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/mailer"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	reminderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// consumerConcurrency - сколько событий доставляется одновременно.
const consumerConcurrency = 4

// App представляет приложение reminder-worker.
type App struct {
	db        *repository.Storage
	conn      *amqp.Connection
	ch        *amqp.Channel
	deliverer *Deliverer
	scheduler *cron.Cron
	logger    *slog.Logger
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReminderQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	sender := mailer.New(cfg.Mailer.APIKey, cfg.Mailer.From, logger)
	reminderService := reminderservice.NewReminderService(db, sender, logger, cfg.StorageTimeout)

	scheduler, err := NewScheduler(cfg.DispatchSpec, NewDispatchJob(reminderService, logger, 5*time.Minute))
	if err != nil {
		closeResources(ch, conn, logger)
		_ = db.Close()
		return nil, fmt.Errorf("invalid dispatch schedule %q: %w", cfg.DispatchSpec, err)
	}

	deliverer := NewDeliverer(&http.Client{Timeout: cfg.DeliverTimeout}, cfg.CallbackSecret, logger)

	return &App{
		db:        db,
		conn:      conn,
		ch:        ch,
		deliverer: deliverer,
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает потребителя и планировщик до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.ReminderQueue, consumerConcurrency, a.deliverer.Handle)
	if err != nil {
		a.logger.Error("failed to start reminder consumer", sl.Err(err))
		closeResources(a.ch, a.conn, a.logger)
		_ = a.db.Close()
		return err
	}

	a.scheduler.Start()
	a.logger.Info("reminder worker started")

	<-ctx.Done()
	a.logger.Info("reminder worker shutting down gracefully")

	<-a.scheduler.Stop().Done()
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
