package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory лимитер на token bucket из x/time/rate, отдельное ведро на ключ.
// Ведро вмещает limit.Requests запросов и полностью восполняется за limit.Window.
type Memory struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     config.Limit
	every     rate.Limit
	lastSweep time.Time
	now       func() time.Time
}

// NewMemory создаёт лимитер в памяти процесса.
func NewMemory(limit config.Limit) *Memory {
	return &Memory{
		buckets: make(map[string]*bucket),
		limit:   limit,
		every:   rate.Every(limit.Window / time.Duration(limit.Requests)),
		now:     time.Now,
	}
}

// Allow расходует один запрос из бюджета ключа.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.every, m.limit.Requests)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: int(b.limiter.TokensAt(now)),
	}, nil
}

// sweep удаляет ведра, которые не использовались дольше окна:
// к этому моменту они всё равно полностью восполнены.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.limit.Window {
		return
	}
	m.lastSweep = now
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) >= m.limit.Window {
			delete(m.buckets, key)
		}
	}
}

// Len количество отслеживаемых ключей.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
