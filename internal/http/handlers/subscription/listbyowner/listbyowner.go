// Package listbyowner реализует HTTP-обработчик получения подписок пользователя по его id.
//
// Пользователь может запросить только свои подписки: при несовпадении {id}
// с идентификатором из токена возвращается 403.
package listbyowner

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type Service interface {
	ListByOwner(ctx context.Context, requestedOwnerID string, callerID uuid.UUID, filter models.ListFilter) ([]models.Subscription, error)
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
// @Summary Подписки пользователя
// @Description Возвращает подписки пользователя {id}. Доступно только самому пользователю.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID пользователя"
// @Param limit query int false "Размер страницы (без параметра возвращаются все подписки)"
// @Param offset query int false "Смещение"
// @Param status query string false "Фильтр по статусу"
// @Success 200 {object} response.Response{data=[]models.Subscription}
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /subscriptions/{id} [get]
// @Router /subscriptions/user/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.listbyowner"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, ok := request.CallerID(r)
	if !ok {
		log.Error("user id not found in context")
		response.Fail(w, r, http.StatusUnauthorized, response.MsgUnauthorized)
		return
	}

	ownerID := chi.URLParam(r, "id")
	subs, err := h.service.ListByOwner(r.Context(), ownerID, callerID, request.OwnerFilter(r))
	if err != nil {
		log.Warn("failed to list subscriptions", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscriptions fetched", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OK("Subscriptions fetched successfully", subs))
}
