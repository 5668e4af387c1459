// Package models содержит доменные структуры подписки, пользователя и напоминания,
// а также DTO для приёма данных из JSON-запросов.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription представляет собой основную модель подписки,
// используемую в бизнес-логике и хранилище.
type Subscription struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	Frequency     string    `json:"frequency"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"paymentMethod"`
	Status        string    `json:"status"`
	StartDate     time.Time `json:"startDate"`
	RenewalDate   time.Time `json:"renewalDate"`
	UserID        uuid.UUID `json:"user"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SubscriptionInput используется для приёма данных из JSON-запроса,
// прежде чем движок жизненного цикла превратит их в Subscription.
// Даты приходят строками (RFC 3339 или YYYY-MM-DD), необязательные поля - указателями.
type SubscriptionInput struct {
	Name          string   `json:"name"`
	Price         *float64 `json:"price"`
	Currency      string   `json:"currency,omitempty"`
	Frequency     string   `json:"frequency,omitempty"`
	Category      string   `json:"category"`
	PaymentMethod string   `json:"paymentMethod"`
	Status        string   `json:"status,omitempty"`
	StartDate     string   `json:"startDate"`
	RenewalDate   string   `json:"renewalDate,omitempty"`
}

// ListFilter параметры постраничной выборки подписок владельца.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
