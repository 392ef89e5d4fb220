package security

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink считает события в security_events_total{kind,severity}.
type MetricsSink struct {
	events *prometheus.CounterVec
}

// NewMetricsSink регистрирует счётчик в reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "security_events_total",
		Help: "Security events by kind and severity.",
	}, []string{"kind", "severity"})
	if err := reg.Register(events); err != nil {
		return nil, fmt.Errorf("security.NewMetricsSink: %w", err)
	}
	return &MetricsSink{events: events}, nil
}

// Write увеличивает счётчик.
func (m *MetricsSink) Write(_ context.Context, e Event) error {
	m.events.WithLabelValues(string(e.Kind), string(e.Severity)).Inc()
	return nil
}

// Publisher публикует сообщение с ключом маршрутизации.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// BrokerSink отправляет события в брокер с ключом security.<severity>.<kind>.
type BrokerSink struct {
	publisher Publisher
}

// NewBrokerSink создаёт получателя поверх издателя.
func NewBrokerSink(p Publisher) *BrokerSink {
	return &BrokerSink{publisher: p}
}

// Write публикует событие.
func (b *BrokerSink) Write(_ context.Context, e Event) error {
	return b.publisher.Publish(RoutingKey(e), e)
}

// RoutingKey ключ маршрутизации события.
func RoutingKey(e Event) string {
	return "security." + string(e.Severity) + "." + string(e.Kind)
}
