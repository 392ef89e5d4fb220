// Package me реализует HTTP-обработчик получения профиля текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Service описывает интерфейс получения профиля.
type Service interface {
	GetCurrentUser(ctx context.Context, subject models.Subject) (*models.PublicUser, error)
}

// Handler обрабатывает GET /auth/me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Возвращает профиль пользователя, которому выдан токен. Роль читается из базы.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]models.PublicUser} "Профиль"
// @Failure 401 {object} response.ErrorResponse "Токен не передан"
// @Failure 403 {object} response.ErrorResponse "Токен невалиден"
// @Failure 404 {object} response.ErrorResponse "Пользователь удалён"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subject, ok := middlewarectx.SubjectFrom(r.Context())
	if !ok {
		log.Error("user identification missing")
		response.RenderStatus(w, r, http.StatusUnauthorized, response.MsgMissingAuth)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), subject)
	if err != nil {
		log.Error("failed to get current user", sl.UserID(subject.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
