// Package password реализует HTTP-обработчик смены пароля.
//
// Текущий пароль проверяется заново даже для аутентифицированного запроса.
package password

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/services/auth"
)

// Service описывает интерфейс смены пароля.
type Service interface {
	ChangePassword(ctx context.Context, subject models.Subject, in auth.ChangePasswordInput) error
}

// Handler обрабатывает PATCH /auth/password.
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
// @Summary Смена пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body auth.ChangePasswordInput true "Текущий и новый пароль"
// @Success 200 {object} response.Response{data=map[string]string} "Пароль изменён"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или неверный текущий пароль"
// @Failure 401 {object} response.ErrorResponse "Токен не передан"
// @Failure 403 {object} response.ErrorResponse "Токен невалиден"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /auth/password [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.password"

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

	var req auth.ChangePasswordInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, response.MsgBadBody)
		return
	}

	if err := h.service.ChangePassword(r.Context(), subject, req); err != nil {
		log.Info("password change failed", sl.UserID(subject.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("password changed", sl.UserID(subject.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "password changed successfully",
	}))
}
