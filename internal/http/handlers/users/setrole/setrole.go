// Package setrole реализует HTTP-обработчик назначения роли пользователю.
package setrole

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Request тело запроса.
type Request struct {
	Role string `json:"role" example:"premium_user"`
}

// Service описывает интерфейс назначения роли.
type Service interface {
	SetRole(ctx context.Context, actor models.Subject, targetID int64, role string) (*models.PublicUser, error)
}

// Handler обрабатывает PATCH /users/{id}/role.
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
// @Summary Назначить роль
// @Description Только для администратора. Допустимые роли: user, premium_user, admin.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body Request true "Новая роль"
// @Success 200 {object} response.Response{data=map[string]models.PublicUser} "Пользователь"
// @Failure 400 {object} response.ErrorResponse "Недопустимая роль"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id}/role [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.setrole"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor, ok := middlewarectx.SubjectFrom(r.Context())
	if !ok {
		response.RenderStatus(w, r, http.StatusUnauthorized, response.MsgMissingAuth)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Error("failed to decode id from url", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, response.MsgBadBody)
		return
	}

	user, err := h.service.SetRole(r.Context(), actor, id, req.Role)
	if err != nil {
		log.Error("failed to set role", slog.Int64("target_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
