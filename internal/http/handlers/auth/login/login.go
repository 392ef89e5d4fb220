// Package login реализует HTTP-обработчик входа по email и паролю.
//
// Для неизвестного email и неверного пароля ответ одинаковый: 401 с общим
// сообщением, чтобы по ответу нельзя было узнать, зарегистрирован ли адрес.
package login

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

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, in auth.LoginInput) (*models.AuthResult, error)
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис аутентификации
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по email и паролю. Возвращает JWT и профиль.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body auth.LoginInput true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=models.AuthResult} "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req auth.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderStatus(w, r, http.StatusBadRequest, response.MsgBadBody)
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		log.Info("login failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("login success", sl.UserID(res.User.ID))
	render.JSON(w, r, response.OKWithData(res))
}
