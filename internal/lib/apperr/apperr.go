// Package apperr содержит таксономию ошибок приложения.
//
// Сервисы возвращают эти ошибки (обёрнутые через %w), а HTTP-слой
// сопоставляет их со статусами ответа через errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict - ресурс уже существует (например, email занят).
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized - неверные учётные данные или токен.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden - доступ к данным другого владельца.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
)

// FieldError описывает нарушение правила для одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError перечисляет все поля, не прошедшие проверку.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// Add добавляет нарушение для поля.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has сообщает, есть ли нарушение для поля.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil возвращает nil, если нарушений нет.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidation создаёт ValidationError с одним полем.
func NewValidation(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// PersistenceError - ошибка хранилища (недоступно, сбой записи).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence оборачивает ошибку хранилища. Известные ошибки
// (ErrNotFound, ErrConflict) пропускаются как есть.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotificationError - сбой постановки напоминания в очередь.
// Никогда не превращается в ошибку ответа клиенту.
type NotificationError struct {
	SubscriptionID string
	Err            error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification for subscription %s: %v", e.SubscriptionID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
