// Package upgrade реализует HTTP-обработчик ручного повышения роли до premium_user.
//
// Администратор может повысить любого пользователя. Пользователь может
// повысить только себя и только с идентификатором оплаченного платежа.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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

// Request тело запроса. Для администратора необязательно.
type Request struct {
	PaymentID string `json:"paymentId,omitempty" example:"2d3d2b6c-000f-5000-9000-1b68e7b15f3f"`
}

// Service описывает интерфейс повышения роли.
type Service interface {
	UpgradeToPremium(ctx context.Context, actor models.Subject, targetID int64, paymentID string) (*models.PublicUser, error)
}

// Handler обрабатывает POST /users/{id}/upgrade-to-premium.
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
// @Summary Повысить до premium_user
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body Request false "Оплаченный платёж (для не-администратора)"
// @Success 200 {object} response.Response{data=map[string]models.PublicUser} "Пользователь"
// @Failure 400 {object} response.ErrorResponse "Не указан платёж"
// @Failure 403 {object} response.ErrorResponse "Чужой пользователь или платёж не оплачен"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id}/upgrade-to-premium [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.upgrade"

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

	// пустое тело допустимо
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, response.MsgBadBody)
		return
	}

	user, err := h.service.UpgradeToPremium(r.Context(), actor, id, req.PaymentID)
	if err != nil {
		log.Error("failed to upgrade user", slog.Int64("target_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": user,
	}))
}
