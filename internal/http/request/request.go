// Package request содержит разбор общих параметров HTTP-запросов.
package request

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ListFilter читает limit, offset и status из query-параметров.
// Некорректные значения заменяются значениями по умолчанию.
func ListFilter(r *http.Request) models.ListFilter {
	return parseFilter(r, defaultLimit)
}

// OwnerFilter разбирает те же параметры, что ListFilter, но без limit
// в запросе возвращает все подписки владельца (Limit = 0).
func OwnerFilter(r *http.Request) models.ListFilter {
	return parseFilter(r, 0)
}

func parseFilter(r *http.Request, fallback int) models.ListFilter {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = fallback
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return models.ListFilter{
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	}
}

// CallerID возвращает идентификатор пользователя, прошедшего JWTMiddleware.
func CallerID(r *http.Request) (uuid.UUID, bool) {
	return middlewarectx.UserIDFrom(r.Context())
}
