// Package signup реализует HTTP-обработчик регистрации пользователя.
//
// Handler принимает имя, email и пароль, проверяет их, создаёт пользователя
// через сервис аутентификации и возвращает JWT вместе с данными пользователя.
package signup

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
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Request - входные данные для регистрации.
type Request struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthData - данные успешного ответа: токен и пользователь.
type AuthData struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Service описывает бизнес-логику регистрации.
type Service interface {
	SignUp(ctx context.Context, name, email, password string) (string, models.User, error)
}

// Handler обрабатывает запросы на регистрацию.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя и возвращает JWT-токен.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response{data=AuthData} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /auth/sign-up [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, response.MsgInvalidBody)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.RenderError(w, r, response.FromValidator(err))
		return
	}

	token, user, err := h.service.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		log.Error("sign up failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("User created successfully", AuthData{Token: token, User: user}))
}
