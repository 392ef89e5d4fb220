// Package security ведёт журнал событий безопасности: вход, регистрация,
// смена пароля, превышение лимитов, уведомления платёжного шлюза и
// изменения ролей. Журнал только записывает и никогда не влияет на
// выполнение операции, которую он документирует.
package security

import "time"

// Kind тип события безопасности.
type Kind string

// Типы событий.
const (
	KindAuthSuccess             Kind = "auth_success"
	KindAuthFailure             Kind = "auth_failure"
	KindRegistration            Kind = "registration"
	KindPasswordChangeSuccess   Kind = "password_change_success"
	KindPasswordChangeFailure   Kind = "password_change_failure"
	KindRateLimitExceeded       Kind = "rate_limit_exceeded"
	KindWebhookSignatureInvalid Kind = "webhook_signature_invalid"
	KindWebhookVerified         Kind = "webhook_verified"
	KindPaymentUpgrade          Kind = "payment_upgrade"
	KindAdminAction             Kind = "admin_action"
	KindUnauthorizedAccess      Kind = "unauthorized_access"
)

// Severity важность события.
type Severity string

// Уровни важности.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DefaultSeverity важность, которая назначается событию, если она не указана явно.
func DefaultSeverity(kind Kind) Severity {
	switch kind {
	case KindWebhookSignatureInvalid:
		return SeverityCritical
	case KindAuthFailure, KindPasswordChangeFailure, KindRateLimitExceeded, KindUnauthorizedAccess:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Event запись журнала безопасности.
type Event struct {
	Time     time.Time      `json:"timestamp"`
	Kind     Kind           `json:"kind"`
	Severity Severity       `json:"severity"`
	UserID   int64          `json:"user_id,omitempty"`
	Email    string         `json:"email,omitempty"`
	IP       string         `json:"ip,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}
