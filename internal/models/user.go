package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет зарегистрированного пользователя системы.
// Хэш пароля никогда не сериализуется в ответы.
type User struct {
	ID           uuid.UUID `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
