// Package middlewarectx содержит HTTP middleware сервиса: проверку токена
// доступа и роли, лимиты запросов, адрес клиента и метрики запросов.
//
// RequireAuth проверяет заголовок Authorization и в случае успеха добавляет
// в контекст данные пользователя из токена. Отсутствующий токен даёт 401,
// невалидный или просроченный даёт 403.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/marketing-simulator/internal/http/response"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/jwt"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// SubjectKey ключ данных пользователя в контексте.
const SubjectKey Key = "subject"

// TokenParser проверяет токен доступа.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// SecurityLogger журнал событий безопасности.
type SecurityLogger interface {
	Log(ctx context.Context, e security.Event)
}

// WithSubject кладёт данные пользователя в контекст.
func WithSubject(ctx context.Context, s models.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, s)
}

// SubjectFrom возвращает пользователя, которого положил RequireAuth.
func SubjectFrom(ctx context.Context) (models.Subject, bool) {
	s, ok := ctx.Value(SubjectKey).(models.Subject)
	return s, ok
}

// RequireAuth возвращает middleware, который проверяет bearer-токен.
func RequireAuth(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireAuth"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			tokenStr = strings.TrimSpace(tokenStr)
			if !found || tokenStr == "" {
				log.Info("missing authorization token")
				response.RenderStatus(w, r, http.StatusUnauthorized, response.MsgMissingAuth)
				return
			}

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				response.RenderStatus(w, r, http.StatusForbidden, models.ErrInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.ToSubject())))
		})
	}
}

// RequireRole пропускает только пользователей с указанной ролью.
// Роль берётся из токена. Ставится после RequireAuth.
func RequireRole(role models.Role, events SecurityLogger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireRole"
			subject, ok := SubjectFrom(r.Context())
			if !ok {
				response.RenderStatus(w, r, http.StatusUnauthorized, response.MsgMissingAuth)
				return
			}
			if subject.Role != role {
				log.With(
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				).Warn("insufficient role", sl.UserID(subject.UserID), slog.String("role", string(subject.Role)))

				events.Log(r.Context(), security.Event{
					Kind:   security.KindUnauthorizedAccess,
					UserID: subject.UserID,
					Email:  subject.Email,
					Details: map[string]any{
						"resource":      r.Method + " " + r.URL.Path,
						"required_role": string(role),
						"role":          string(subject.Role),
					},
				})
				response.RenderStatus(w, r, http.StatusForbidden, models.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
