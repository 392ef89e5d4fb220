package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
)

// Redis лимитер с фиксированным окном: INCR счётчика и EXPIRE при первом запросе окна.
// Общий для всех реплик, использующих один Redis.
type Redis struct {
	client *redis.Client
	name   string
	limit  config.Limit
}

// NewRedis создаёт лимитер. name разделяет счётчики разных маршрутов.
func NewRedis(client *redis.Client, name string, limit config.Limit) *Redis {
	return &Redis{client: client, name: name, limit: limit}
}

// Allow расходует один запрос из бюджета ключа в текущем окне.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	const op = "ratelimit.Redis.Allow"

	redisKey := fmt.Sprintf("ratelimit:%s:%s", r.name, key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, r.limit.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if count <= int64(r.limit.Requests) {
		return Decision{Allowed: true, Remaining: r.limit.Requests - int(count)}, nil
	}

	ttl, err := r.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if ttl < 0 {
		// ключ остался без срока жизни, например после сбоя между INCR и PEXPIRE
		if err := r.client.PExpire(ctx, redisKey, r.limit.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		ttl = r.limit.Window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

var _ Limiter = (*Redis)(nil)
var _ Limiter = (*Memory)(nil)
