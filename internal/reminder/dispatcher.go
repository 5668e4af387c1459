// Package reminder запускает workflow напоминаний: событие ставится в очередь
// в памяти и асинхронно публикуется в RabbitMQ.
//
// Вызывающий код никогда не ждёт брокер: Enqueue либо сразу принимает событие,
// либо сразу возвращает ошибку. Доставка не более одного раза, без повторов.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

var (
	// ErrQueueFull - очередь событий заполнена.
	ErrQueueFull = errors.New("reminder queue is full")
	// ErrStopped - диспетчер остановлен.
	ErrStopped = errors.New("reminder dispatcher is stopped")
	// ErrPublishTimeout - брокер не принял событие за отведённое время.
	ErrPublishTimeout = errors.New("publish timed out")
)

// RunIDPrefix - префикс идентификатора запуска workflow.
const RunIDPrefix = "wfr_"

// Publisher отправляет событие в брокер.
type Publisher interface {
	Publish(message any) error
}

// Request описывает запуск workflow: адрес, на который worker доставит событие,
// и подписку, для которой оно предназначено.
type Request struct {
	URL            string
	SubscriptionID uuid.UUID
}

// Dispatcher принимает события и публикует их в одной горутине.
type Dispatcher struct {
	log            *slog.Logger
	publisher      Publisher
	queue          chan models.ReminderEvent
	publishTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher создаёт диспетчер с очередью размера size.
func NewDispatcher(log *slog.Logger, publisher Publisher, size int, publishTimeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		log:            log,
		publisher:      publisher,
		queue:          make(chan models.ReminderEvent, size),
		publishTimeout: publishTimeout,
	}
}

// Enqueue ставит событие в очередь и возвращает идентификатор запуска.
// Ошибка всегда имеет тип *apperr.NotificationError.
func (d *Dispatcher) Enqueue(req Request) (string, error) {
	event := models.ReminderEvent{
		RunID:          RunIDPrefix + uuid.NewString(),
		URL:            req.URL,
		SubscriptionID: req.SubscriptionID,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return "", &apperr.NotificationError{SubscriptionID: req.SubscriptionID.String(), Err: ErrStopped}
	}

	select {
	case d.queue <- event:
		return event.RunID, nil
	default:
		return "", &apperr.NotificationError{SubscriptionID: req.SubscriptionID.String(), Err: ErrQueueFull}
	}
}

// Run публикует события до отмены ctx. После отмены новые события не принимаются,
// а уже принятые публикуются перед выходом.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.publish(event)
		case <-ctx.Done():
			d.stop()
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.publish(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(event models.ReminderEvent) {
	const op = "reminder.Dispatcher.publish"
	log := d.log.With(
		slog.String("op", op),
		slog.String("run_id", event.RunID),
		slog.String("subscription_id", event.SubscriptionID.String()),
	)

	if err := d.publishWithTimeout(event); err != nil {
		metrics.NotificationFailed(metrics.StagePublish)
		log.Error("failed to publish reminder event", sl.Err(err))
		return
	}
	log.Debug("reminder event published")
}

func (d *Dispatcher) publishWithTimeout(event models.ReminderEvent) error {
	done := make(chan error, 1)
	go func() {
		done <- d.publisher.Publish(event)
	}()

	timer := time.NewTimer(d.publishTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPublishTimeout, d.publishTimeout)
	}
}
