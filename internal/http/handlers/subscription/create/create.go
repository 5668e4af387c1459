// Package create реализует HTTP-обработчик для создания новых подписок пользователя.
//
// Handler принимает JSON с данными подписки, передаёт их сервису вместе с
// идентификатором пользователя из контекста и возвращает созданную подписку
// и идентификатор запуска workflow напоминаний.
//
// Проверку полей выполняет движок жизненного цикла подписки, его ошибки
// возвращаются клиенту списком нарушенных полей.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler управляет HTTP-запросами на создание новых подписок.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики для создания подписок
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, callerID uuid.UUID, in models.SubscriptionInput) (models.Subscription, string, error)
}

// Response - ответ на создание подписки. workflowRunId пуст, если напоминания
// не удалось поставить в очередь.
type Response struct {
	response.Response
	WorkflowRunID string `json:"workflowRunId"`
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Создать новую подписку
// @Description Создает подписку текущего пользователя и запускает workflow напоминаний.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.SubscriptionInput true "Данные новой подписки"
// @Success 201 {object} Response "Подписка создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании подписки"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
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

	var in models.SubscriptionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, response.MsgInvalidBody)
		return
	}

	sub, runID, err := h.service.Create(r.Context(), callerID, in)
	if err != nil {
		log.Error("failed to create subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscription created",
		slog.String("id", sub.ID.String()),
		slog.String("workflow_run_id", runID),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Response:      response.OK("Subscription created successfully", sub),
		WorkflowRunID: runID,
	})
}
