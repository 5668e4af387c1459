package reminderworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

// DueDispatcher отправляет напоминания, время которых наступило.
type DueDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// DispatchJob - периодическая задача рассылки писем.
type DispatchJob struct {
	service DueDispatcher
	log     *slog.Logger
	timeout time.Duration
}

// NewDispatchJob создаёт задачу. timeout ограничивает один запуск.
func NewDispatchJob(service DueDispatcher, log *slog.Logger, timeout time.Duration) *DispatchJob {
	return &DispatchJob{
		service: service,
		log:     log,
		timeout: timeout,
	}
}

// Run реализует cron.Job.
func (j *DispatchJob) Run() {
	const op = "reminderworker.DispatchJob.Run"
	log := j.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	sent, err := j.service.DispatchDue(ctx)
	if err != nil {
		log.Error("failed to dispatch due reminders", sl.Err(err))
		return
	}
	log.Info("due reminders dispatched", slog.Int("sent", sent))
}

// NewScheduler создаёт планировщик с задачей job по расписанию spec.
// Следующий запуск пропускается, пока предыдущий не закончился.
func NewScheduler(spec string, job cron.Job) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	return c, nil
}
