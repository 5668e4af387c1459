package reminderworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	workflowreminder "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/workflow/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Deliverer доставляет события напоминаний на адрес workflow из события.
type Deliverer struct {
	client *http.Client
	secret string
	log    *slog.Logger
}

// NewDeliverer создаёт Deliverer. Таймаут запроса задаётся в client.
func NewDeliverer(client *http.Client, secret string, log *slog.Logger) *Deliverer {
	return &Deliverer{
		client: client,
		secret: secret,
		log:    log,
	}
}

// Handle обрабатывает одно сообщение из очереди. Любая ошибка приводит
// к отклонению сообщения без повторной доставки.
func (d *Deliverer) Handle(ctx context.Context, body []byte) error {
	const op = "reminderworker.Deliverer.Handle"

	var event models.ReminderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.NotificationFailed(metrics.StageDeliver)
		return fmt.Errorf("%s: decode event: %w", op, err)
	}

	if err := d.deliver(ctx, event); err != nil {
		metrics.NotificationFailed(metrics.StageDeliver)
		return fmt.Errorf("%s: %w", op, err)
	}

	d.log.Info("reminder event delivered",
		slog.String("run_id", event.RunID),
		slog.String("subscription_id", event.SubscriptionID.String()),
	)
	return nil
}

func (d *Deliverer) deliver(ctx context.Context, event models.ReminderEvent) error {
	payload, err := json.Marshal(workflowreminder.Request{SubscriptionID: event.SubscriptionID.String()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(workflowreminder.RunIDHeader, event.RunID)
	req.Header.Set(middlewarectx.WorkflowSecretHeader, d.secret)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("workflow endpoint responded with status %d", resp.StatusCode)
	}
	return nil
}
