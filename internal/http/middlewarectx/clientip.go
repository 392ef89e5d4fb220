package middlewarectx

import (
	"net"
	"net/http"

	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// ClientIP сохраняет адрес клиента в контексте для журнала безопасности
// и лимитов. Если сервис стоит за прокси, перед ним ставится middleware.RealIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := security.WithClientIP(r.Context(), hostOf(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
