// Package mailer отправляет письма-напоминания о продлении подписок через Resend.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/resend/resend-go/v3"
)

// Reminder - данные одного письма.
type Reminder struct {
	To               string
	UserName         string
	SubscriptionName string
	Price            float64
	Currency         string
	Frequency        string
	PaymentMethod    string
	RenewalDate      time.Time
	DaysLeft         int
}

// Sender - интерфейс отправки писем.
type Sender interface {
	SendReminder(ctx context.Context, r Reminder) (string, error)
}

// Resend отправляет письма через API Resend.
type Resend struct {
	client *resend.Client
	from   string
}

// NewResend создаёт отправителя поверх клиента Resend с адресом from.
func NewResend(client *resend.Client, from string) *Resend {
	return &Resend{client: client, from: from}
}

// New возвращает Resend, если задан apiKey, иначе отправитель, который только пишет письма в лог.
func New(apiKey, from string, log *slog.Logger) Sender {
	if apiKey == "" {
		log.Warn("RESEND_API_KEY is missing, reminder emails will be logged only")
		return &LogSender{log: log}
	}
	return NewResend(resend.NewClient(apiKey), from)
}

// SendReminder отправляет письмо и возвращает идентификатор, присвоенный Resend.
func (m *Resend) SendReminder(ctx context.Context, r Reminder) (string, error) {
	const op = "mailer.SendReminder"

	html, err := Render(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{r.To},
		Subject: Subject(r),
		Html:    html,
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sent.Id, nil
}

// LogSender пишет письма в лог вместо отправки.
type LogSender struct {
	log *slog.Logger
}

func (m *LogSender) SendReminder(_ context.Context, r Reminder) (string, error) {
	m.log.Info("reminder email",
		slog.String("to", r.To),
		slog.String("subject", Subject(r)),
	)
	return "", nil
}

// Subject формирует тему письма.
func Subject(r Reminder) string {
	if r.DaysLeft == 1 {
		return fmt.Sprintf("Reminder: your %s subscription renews tomorrow", r.SubscriptionName)
	}
	return fmt.Sprintf("Reminder: your %s subscription renews in %d days", r.SubscriptionName, r.DaysLeft)
}

var reminderTmpl = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
<p>Hello {{.UserName}},</p>
<p>Your <strong>{{.SubscriptionName}}</strong> subscription renews on <strong>{{.RenewalDate.Format "January 2, 2006"}}</strong>.</p>
<table>
<tr><td>Plan</td><td>{{.SubscriptionName}}</td></tr>
<tr><td>Price</td><td>{{printf "%.2f" .Price}} {{.Currency}} ({{.Frequency}})</td></tr>
<tr><td>Payment method</td><td>{{.PaymentMethod}}</td></tr>
</table>
<p>If you no longer need it, cancel before the renewal date.</p>
</div>`))

// Render формирует HTML письма.
func Render(r Reminder) (string, error) {
	var buf bytes.Buffer
	if err := reminderTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
