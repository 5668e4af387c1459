// Package reminder реализует HTTP-обработчик шага workflow напоминаний.
//
// Вызывается reminder-worker'ом по событию из очереди: планирует письма
// о продлении подписки. Доступ защищён общим секретом workflow.
package reminder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	reminderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
)

// RunIDHeader - заголовок с идентификатором запуска workflow.
const RunIDHeader = "X-Workflow-Run-Id"

// Request - тело запроса шага workflow.
type Request struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

type Service interface {
	Schedule(ctx context.Context, subscriptionID string) (reminderservice.ScheduleResult, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Шаг workflow напоминаний
// @Description Планирует письма за 7, 5, 2 и 1 день до продления подписки.
// @Tags Workflows
// @Accept json
// @Produce json
// @Param X-Workflow-Secret header string true "Общий секрет workflow"
// @Param request body Request true "Подписка"
// @Success 200 {object} response.Response{data=reminderservice.ScheduleResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /workflows/subscription/reminder [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workflow.reminder"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("workflow_run_id", r.Header.Get(RunIDHeader)),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, response.MsgInvalidBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.RenderError(w, r, response.FromValidator(err))
		return
	}

	res, err := h.service.Schedule(r.Context(), req.SubscriptionID)
	if err != nil {
		log.Error("failed to schedule reminders", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("reminder workflow step finished",
		slog.String("status", res.Status),
		slog.Int("scheduled", len(res.Scheduled)),
	)
	render.JSON(w, r, response.OK("Reminders "+res.Status, res))
}
