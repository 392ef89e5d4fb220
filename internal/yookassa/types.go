package yookassa

import (
	"strconv"
	"time"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Amount представляет денежную сумму.
type Amount struct {
	Value    string `json:"value"`    // сумма, например "990.00"
	Currency string `json:"currency"` // валюта, например "RUB"
}

// Confirmation способ подтверждения платежа пользователем.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// ConfirmationRedirect переход пользователя на страницу оплаты ЮKassa.
const ConfirmationRedirect = "redirect"

// Ключи metadata, которые сервис передаёт при создании платежа.
const (
	MetadataUserID    = "userId"
	MetadataUserEmail = "userEmail"
)

// CreatePaymentRequest представляет запрос на создание платежа.
type CreatePaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Payment объект платежа в ответах API и в уведомлениях.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// UserID идентификатор пользователя из metadata или 0, если его нет или он некорректен.
func (p *Payment) UserID() int64 {
	raw, ok := p.Metadata[MetadataUserID]
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// Verified переводит платёж в доверенное представление.
// Вызывать только для данных, полученных от самого шлюза.
func (p *Payment) Verified() models.VerifiedPayment {
	return models.VerifiedPayment{
		ID:       p.ID,
		Status:   models.PaymentStatus(p.Status),
		Paid:     p.Paid,
		Amount:   p.Amount.Value,
		Currency: p.Amount.Currency,
		UserID:   p.UserID(),
	}
}

// События уведомлений.
const (
	EventPaymentSucceeded         = "payment.succeeded"
	EventPaymentCanceled          = "payment.canceled"
	EventPaymentWaitingForCapture = "payment.waiting_for_capture"
	EventRefundSucceeded          = "refund.succeeded"
)

// Notification тело HTTP-уведомления ЮKassa.
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}

// APIError тело ответа ЮKassa с ошибкой.
type APIError struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter,omitempty"`
}

func (e *APIError) Error() string {
	return "yookassa: " + strconv.Itoa(e.StatusCode) + " " + e.Code + ": " + e.Description
}
