package models

import (
	"errors"
	"strings"
)

var (
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken email уже зарегистрирован.
	ErrEmailTaken = errors.New("user with this email already exists")
	// ErrInvalidCredentials неверный email или пароль. Текст одинаков для
	// отсутствующего пользователя и неверного пароля.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWrongCurrentPassword неверный текущий пароль при смене пароля.
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	// ErrInvalidToken токен отсутствует, просрочен или повреждён.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden недостаточно прав или доступ к чужому ресурсу.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidRole неизвестная роль.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAlreadyPremium у пользователя уже есть премиум-доступ.
	ErrAlreadyPremium = errors.New("user already has premium access")
	// ErrPaymentsDisabled платёжный шлюз не настроен.
	ErrPaymentsDisabled = errors.New("payment service is not configured")
	// ErrUpstream ошибка платёжного шлюза.
	ErrUpstream = errors.New("payment gateway error")
	// ErrUpstreamTimeout платёжный шлюз не ответил вовремя.
	ErrUpstreamTimeout = errors.New("payment gateway timeout")
	// ErrUntrustedSource уведомление пришло не от платёжного шлюза.
	ErrUntrustedSource = errors.New("untrusted webhook source")
	// ErrRateLimited превышен лимит запросов.
	ErrRateLimited = errors.New("too many requests")
)

// FieldError описывает ошибку валидации одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError ошибка валидации входных данных с разбивкой по полям.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// NewValidationError создаёт ошибку валидации из списка полей.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}
