// Package upcoming реализует HTTP-обработчик списка предстоящих продлений.
package upcoming

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// DefaultDays - окно по умолчанию, если параметр days не передан.
const DefaultDays = 7

type Service interface {
	UpcomingRenewals(ctx context.Context, callerID uuid.UUID, days int) ([]models.Subscription, error)
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
// @Summary Предстоящие продления
// @Description Активные подписки пользователя, продление которых наступит в ближайшие days дней.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param days query int false "Окно в днях (1-365)" default(7)
// @Success 200 {object} response.Response{data=[]models.Subscription}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /subscriptions/upcoming-renewals [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upcoming"

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

	days := DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn("invalid days parameter", slog.String("days", raw))
			response.RenderError(w, r, apperr.NewValidation("days", "days must be an integer"))
			return
		}
		days = n
	}

	subs, err := h.service.UpcomingRenewals(r.Context(), callerID, days)
	if err != nil {
		log.Error("failed to load upcoming renewals", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OK("Upcoming renewals fetched successfully", subs))
}
