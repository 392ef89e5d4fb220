package middlewarectx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics гистограмма длительности HTTP-запросов.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics регистрирует http_request_duration_seconds в reg.
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	const op = "middlewarectx.NewHTTPMetrics"
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	if err := reg.Register(duration); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &HTTPMetrics{duration: duration}, nil
}

// Middleware измеряет запрос. Маршрут берётся из шаблона chi, чтобы
// идентификаторы в пути не раздували число серий.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.duration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
