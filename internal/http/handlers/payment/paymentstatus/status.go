// Package paymentstatus реализует HTTP-обработчик проверки статуса платежа.
//
// Оплаченный платёж повышает роль пользователя. Повторный запрос роль не меняет.
package paymentstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Service определяет интерфейс запроса статуса.
type Service interface {
	GetStatus(ctx context.Context, paymentID string, requesterID int64) (*models.PaymentStatusResult, error)
}

// Handler обрабатывает GET /payment/status/{paymentId}.
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
// @Summary Статус платежа
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param paymentId path string true "ID платежа в ЮKassa"
// @Success 200 {object} response.Response{data=models.PaymentStatusResult} "Статус"
// @Failure 403 {object} response.ErrorResponse "Платёж другого пользователя"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Failure 503 {object} response.ErrorResponse "Платежи не настроены"
// @Router /payment/status/{paymentId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subject, ok := middlewarectx.SubjectFrom(r.Context())
	if !ok {
		response.RenderStatus(w, r, http.StatusUnauthorized, response.MsgMissingAuth)
		return
	}

	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		response.RenderStatus(w, r, http.StatusBadRequest, "payment id is required")
		return
	}

	res, err := h.service.GetStatus(r.Context(), paymentID, subject.UserID)
	if err != nil {
		log.Error("failed to get payment status",
			sl.UserID(subject.UserID),
			slog.String("payment_id", paymentID),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
