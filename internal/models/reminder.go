package models

import (
	"time"

	"github.com/google/uuid"
)

// Reminder - запланированное письмо о предстоящем продлении подписки.
type Reminder struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	Kind           string
	SendAt         time.Time
	SentAt         *time.Time
}

// DueReminder - напоминание, время которого наступило, вместе с данными для письма.
type DueReminder struct {
	Reminder
	Subscription Subscription
	UserName     string
	UserEmail    string
}

// ReminderEvent - сообщение о запуске workflow напоминаний, передаваемое через брокер.
type ReminderEvent struct {
	RunID          string    `json:"runId"`
	URL            string    `json:"url"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
}
