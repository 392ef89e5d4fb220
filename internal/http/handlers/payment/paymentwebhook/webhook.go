// Package paymentwebhook принимает HTTP-уведомления ЮKassa.
//
// Источник проверяется по адресу отправителя и, если задан секрет, по подписи
// X-Api-Signature. После успешной проверки обработчик всегда отвечает 200:
// иначе шлюз будет бесконечно повторять уведомление, которое не удаётся обработать.
package paymentwebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
	"github.com/magabrotheeeer/marketing-simulator/internal/yookassa"
)

const maxBodyBytes = 1 << 20

// Service обрабатывает проверенное уведомление.
type Service interface {
	HandleNotification(ctx context.Context, n yookassa.Notification) error
}

// SourceFilter проверяет адрес отправителя.
type SourceFilter interface {
	Allowed(remoteAddr string) bool
}

// SecurityLogger журнал событий безопасности.
type SecurityLogger interface {
	Log(ctx context.Context, e security.Event)
}

// Handler обрабатывает POST /payment/webhook.
type Handler struct {
	log           *slog.Logger
	service       Service
	filter        SourceFilter
	events        SecurityLogger
	webhookSecret string // пустой секрет отключает проверку подписи
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service, filter SourceFilter, events SecurityLogger, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		filter:        filter,
		events:        events,
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Уведомление ЮKassa
// @Description Принимает уведомления о платежах. Доступно только из сетей ЮKassa.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body yookassa.Notification true "Уведомление"
// @Success 200 {object} map[string]bool "Уведомление принято"
// @Failure 403 {object} response.ErrorResponse "Недоверенный источник"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /payment/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if !h.filter.Allowed(r.RemoteAddr) {
		log.Warn("webhook from untrusted address", slog.String("remote_addr", r.RemoteAddr))
		h.reject(w, r, "untrusted source address")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		// после проверки адреса шлюз получает 200, иначе повторит отправку
		log.Error("failed to read webhook body", sl.Err(err))
		h.ack(w, r)
		return
	}

	if h.webhookSecret != "" && !yookassa.VerifySignature(h.webhookSecret, body, r.Header.Get(yookassa.SignatureHeader)) {
		log.Warn("invalid or missing webhook signature")
		h.reject(w, r, "invalid signature")
		return
	}

	var n yookassa.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		h.ack(w, r)
		return
	}

	h.events.Log(r.Context(), security.Event{
		Kind: security.KindWebhookVerified,
		Details: map[string]any{
			"event":      n.Event,
			"payment_id": n.Object.ID,
		},
	})

	if err := h.service.HandleNotification(r.Context(), n); err != nil {
		log.Error("failed to process webhook event",
			slog.String("event", n.Event),
			slog.String("payment_id", n.Object.ID),
			sl.Err(err),
		)
	} else {
		log.Info("webhook processed", slog.String("event", n.Event), slog.String("payment_id", n.Object.ID))
	}
	h.ack(w, r)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, reason string) {
	h.events.Log(r.Context(), security.Event{
		Kind: security.KindWebhookSignatureInvalid,
		Details: map[string]any{
			"reason":      reason,
			"remote_addr": r.RemoteAddr,
		},
	})
	response.RenderStatus(w, r, http.StatusForbidden, models.ErrUntrustedSource.Error())
}

func (h *Handler) ack(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"received": true})
}
