// Package ratelimit ограничивает число запросов на ключ (обычно адрес клиента)
// в пределах окна. Есть две реализации: в памяти процесса и в Redis для
// нескольких реплик сервиса.
package ratelimit

import (
	"context"
	"time"
)

// Decision результат проверки лимита.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter проверяет и расходует бюджет запросов для ключа.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RetryAfterSeconds округляет задержку вверх до целых секунд для заголовка Retry-After.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
