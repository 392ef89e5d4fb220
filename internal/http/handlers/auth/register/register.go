// Package register реализует HTTP-обработчик регистрации пользователя.
//
// Обработчик декодирует JSON, передаёт данные сервису аутентификации и
// возвращает токен доступа вместе с профилем нового пользователя.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.AuthResult, error)
}

// Handler обрабатывает запросы на регистрацию.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик регистрации.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись с ролью user и возвращает токен доступа.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body auth.RegisterInput true "Данные пользователя"
// @Success 201 {object} response.Response{data=models.AuthResult} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или email уже занят"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, response.MsgBadBody)
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", sl.UserID(res.User.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}
