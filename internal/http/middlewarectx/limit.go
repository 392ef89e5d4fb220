package middlewarectx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/ratelimit"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// RateLimit ограничивает число запросов к маршруту name с одного адреса.
// При превышении отвечает 429 с заголовком Retry-After и не вызывает next.
// Если хранилище лимитов недоступно, запрос пропускается.
func RateLimit(limiter ratelimit.Limiter, name string, events SecurityLogger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RateLimit"
			log := log.With(
				slog.String("op", op),
				slog.String("route", name),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			key := security.ClientIP(r.Context())
			if key == "" {
				key = hostOf(r.RemoteAddr)
			}

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("rate limiter unavailable, allowing request", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				log.Warn("too many requests", slog.String("ip", key))
				events.Log(r.Context(), security.Event{
					Kind: security.KindRateLimitExceeded,
					IP:   key,
					Details: map[string]any{
						"route":       name,
						"path":        r.URL.Path,
						"retry_after": decision.RetryAfter.String(),
					},
				})
				w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(decision.RetryAfter)))
				response.RenderStatus(w, r, http.StatusTooManyRequests, models.ErrRateLimited.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
