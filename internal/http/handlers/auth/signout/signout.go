// Package signout реализует HTTP-обработчик выхода.
// Токены не хранятся на сервере, поэтому выход только подтверждает запрос.
package signout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

type Service interface {
	SignOut()
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response "Выход выполнен"
// @Router /auth/sign-out [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signout"

	h.service.SignOut()

	h.log.Info("user signed out",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	render.JSON(w, r, response.OK("User signed out successfully", nil))
}
