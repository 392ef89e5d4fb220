// Package paymentcreate реализует HTTP-обработчик создания платежа за премиум-доступ.
package paymentcreate

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

// Service определяет интерфейс для работы с платежами.
type Service interface {
	CreatePayment(ctx context.Context, req models.UntrustedPaymentRequest) (*models.PaymentResult, error)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Создать платеж
// @Description Создает платеж в ЮKassa на покупку премиум-доступа. Клиента нужно перенаправить на confirmationUrl.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.PaymentResult} "Платеж создан"
// @Failure 400 {object} response.ErrorResponse "Премиум-доступ уже есть"
// @Failure 401 {object} response.ErrorResponse "Токен не передан"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Failure 503 {object} response.ErrorResponse "Платежи не настроены"
// @Failure 504 {object} response.ErrorResponse "Шлюз не ответил"
// @Router /payment/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"

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

	res, err := h.service.CreatePayment(r.Context(), models.UntrustedPaymentRequest{
		UserID:    subject.UserID,
		UserEmail: subject.Email,
	})
	if err != nil {
		log.Error("failed to create payment", sl.UserID(subject.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
