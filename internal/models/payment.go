package models

// PaymentStatus статус платежа в платёжном шлюзе.
type PaymentStatus string

// Статусы платежа ЮKassa.
const (
	PaymentPending           PaymentStatus = "pending"
	PaymentWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentCanceled          PaymentStatus = "canceled"
)

// UntrustedPaymentRequest данные, которые поступают от клиента при создании платежа.
// Они никогда не используются для изменения роли пользователя.
type UntrustedPaymentRequest struct {
	UserID    int64
	UserEmail string
}

// VerifiedPayment платёж в том виде, в каком его вернул платёжный шлюз
// (ответ на запрос статуса или уведомление, прошедшее проверку источника).
// Только на его основе меняется роль пользователя.
type VerifiedPayment struct {
	ID       string
	Status   PaymentStatus
	Paid     bool
	Amount   string
	Currency string
	UserID   int64 // 0, если metadata.userId отсутствует или некорректен
}

// Settled сообщает, что платёж успешно завершён и оплачен.
func (p *VerifiedPayment) Settled() bool {
	return p.Status == PaymentSucceeded && p.Paid
}

// PaymentResult ответ клиенту после создания платежа.
type PaymentResult struct {
	PaymentID       string        `json:"paymentId"`
	ConfirmationURL string        `json:"confirmationUrl"`
	Status          PaymentStatus `json:"status"`
	Amount          string        `json:"amount"`
	Currency        string        `json:"currency"`
}

// PaymentStatusResult ответ клиенту на запрос статуса платежа.
type PaymentStatusResult struct {
	PaymentID string        `json:"paymentId"`
	Status    PaymentStatus `json:"status"`
	Paid      bool          `json:"paid"`
	Amount    string        `json:"amount"`
	Currency  string        `json:"currency"`
}
