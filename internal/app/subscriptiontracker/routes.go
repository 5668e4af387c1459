// Package subscriptiontracker предоставляет маршруты и сборку HTTP-приложения.
package subscriptiontracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signout"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/listbyowner"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/remove"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/subscription/upcoming"
	workflowreminder "github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/workflow/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
)

// AuthService - всё, что маршрутам нужно от сервиса аутентификации.
type AuthService interface {
	signup.Service
	signin.Service
	signout.Service
	middlewarectx.Authenticator
}

// SubscriptionService - всё, что маршрутам нужно от сервиса подписок.
type SubscriptionService interface {
	create.Service
	list.Service
	upcoming.Service
	update.Service
	cancel.Service
	remove.Service
}

// Deps - зависимости маршрутов.
type Deps struct {
	Auth           AuthService
	Subscriptions  SubscriptionService
	Reminders      workflowreminder.Service
	Health         health.Pinger
	Limiter        *middlewarectx.RateLimiter
	WorkflowSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, deps.Limiter))
			r.Post("/auth/sign-up", signup.New(logger, deps.Auth).ServeHTTP)
			r.Post("/auth/sign-in", signin.New(logger, deps.Auth).ServeHTTP)
			r.Post("/auth/sign-out", signout.New(logger, deps.Auth).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, deps.Limiter))

			r.Post("/subscriptions", create.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/upcoming-renewals", upcoming.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/user/{id}", listbyowner.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}", listbyowner.New(logger, deps.Subscriptions).ServeHTTP)
			r.Put("/subscriptions/{id}", update.New(logger, deps.Subscriptions).ServeHTTP)
			r.Put("/subscriptions/{id}/cancel", cancel.New(logger, deps.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", remove.New(logger, deps.Subscriptions).ServeHTTP)
		})

		// Шаг workflow, вызывается reminder-worker'ом
		r.With(middlewarectx.WorkflowSecret(deps.WorkflowSecret, logger)).
			Post("/workflows/subscription/reminder", workflowreminder.New(logger, deps.Reminders).ServeHTTP)

		r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	})

	r.Handle("/metrics", metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
