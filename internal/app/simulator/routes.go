// Package simulator собирает HTTP API сервиса: хранилище, журнал безопасности,
// лимиты запросов, платёжный шлюз и маршруты.
package simulator

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/auth/password"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/health"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/users/setrole"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/handlers/users/upgrade"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/ratelimit"

	_ "github.com/magabrotheeeer/marketing-simulator/docs"
)

// AuthService операции /auth.
type AuthService interface {
	register.Service
	login.Service
	me.Service
	password.Service
}

// UsersService операции /users.
type UsersService interface {
	list.Service
	setrole.Service
	upgrade.Service
}

// PaymentService операции /payment.
type PaymentService interface {
	paymentcreate.Service
	paymentstatus.Service
	paymentwebhook.Service
}

// LimiterFactory создаёт ограничитель для маршрута name.
type LimiterFactory func(name string, limit config.Limit) ratelimit.Limiter

// Dependencies всё, что нужно маршрутам.
type Dependencies struct {
	Auth          AuthService
	Users         UsersService
	Payment       PaymentService
	Tokens        middlewarectx.TokenParser
	Events        middlewarectx.SecurityLogger
	Limiter       LimiterFactory
	RateLimits    config.RateLimits
	WebhookFilter paymentwebhook.SourceFilter
	WebhookSecret string
	Metrics       *middlewarectx.HTTPMetrics
	// MetricsHandler отдаёт /metrics, nil отключает маршрут.
	MetricsHandler http.Handler
	TrustProxy     bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Dependencies) {
	// Глобальные middleware
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middlewarectx.ClientIP)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)

	limit := func(name string, l config.Limit) func(http.Handler) http.Handler {
		return middlewarectx.RateLimit(d.Limiter(name, l), name, d.Events, logger)
	}
	requireAuth := middlewarectx.RequireAuth(d.Tokens, logger)

	r.Method(http.MethodGet, "/health", health.New())

	r.Route("/auth", func(r chi.Router) {
		r.With(limit("register", d.RateLimits.Register)).Method(http.MethodPost, "/register", register.New(logger, d.Auth))
		r.With(limit("login", d.RateLimits.Login)).Method(http.MethodPost, "/login", login.New(logger, d.Auth))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Method(http.MethodGet, "/me", me.New(logger, d.Auth))
			r.With(limit("password", d.RateLimits.Password)).Method(http.MethodPatch, "/password", password.New(logger, d.Auth))
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(models.RoleAdmin, d.Events, logger))
			r.Method(http.MethodGet, "/", list.New(logger, d.Users))
			r.Method(http.MethodPatch, "/{id}/role", setrole.New(logger, d.Users))
		})
		// сам пользователь или администратор, проверяет сервис
		r.Method(http.MethodPost, "/{id}/upgrade-to-premium", upgrade.New(logger, d.Users))
	})

	r.Route("/payment", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Method(http.MethodPost, "/create", paymentcreate.New(logger, d.Payment))
			r.Method(http.MethodGet, "/status/{paymentId}", paymentstatus.New(logger, d.Payment))
		})
		// Webhook endpoint (без аутентификации, фильтр по адресу ЮKassa)
		r.With(limit("webhook", d.RateLimits.Webhook)).
			Method(http.MethodPost, "/webhook", paymentwebhook.New(logger, d.Payment, d.WebhookFilter, d.Events, d.WebhookSecret))
	})

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
