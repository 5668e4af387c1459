// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и сопоставления ошибок
// приложения со статусами HTTP.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// ErrorResponse - структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Success bool                `json:"success" example:"false"`
	Message string              `json:"message" example:"Validation failed"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// Сообщения об ошибках, которые видит клиент.
const (
	MsgInvalidBody        = "invalid request body"
	MsgValidationFailed   = "Validation failed"
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid email or password"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "You are not authorized to access this resource"
	MsgNotFound           = "Subscription not found"
	MsgTooManyRequests    = "Too many requests"
	MsgInternal           = "Internal server error"
)

// OK возвращает успешный Response с сообщением и данными.
func OK(message string, data any) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Success: false,
		Message: msg,
	}
}

// Validation формирует ответ со списком нарушенных полей.
func Validation(verr *apperr.ValidationError) Response {
	return Response{
		Success: false,
		Message: MsgValidationFailed,
		Errors:  verr.Fields,
	}
}

// NewValidator возвращает валидатор, который называет поля по json-тегам.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FromValidator переводит ошибки go-playground/validator в apperr.ValidationError.
// Имя поля берётся из json-тега, если валидатор настроен на него.
func FromValidator(err error) *apperr.ValidationError {
	verr := &apperr.ValidationError{}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		verr.Add("", err.Error())
		return verr
	}
	for _, fe := range errs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			msg = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		case "gte", "lte":
			msg = fmt.Sprintf("%s is out of range", fe.Field())
		default:
			msg = fmt.Sprintf("%s is not valid", fe.Field())
		}
		verr.Add(fe.Field(), msg)
	}
	return verr
}

// StatusFor сопоставляет ошибку приложения со статусом HTTP и текстом для клиента.
// Внутренний текст ошибки наружу не выдаётся.
func StatusFor(err error) (int, string) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, MsgValidationFailed
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, MsgUserExists
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, MsgInvalidCredentials
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// RenderError пишет ответ для ошибки err со статусом из StatusFor.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	render.Status(r, status)

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		render.JSON(w, r, Validation(verr))
		return
	}
	render.JSON(w, r, Error(msg))
}

// Fail пишет ответ с ошибкой и заданным статусом.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}
