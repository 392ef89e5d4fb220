package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
)

// Sink дополнительный получатель событий (метрики, брокер сообщений).
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Logger пишет события в slog и раздаёт их в sinks.
// Ошибки и паники получателей логируются и не выходят наружу.
// Нулевой *Logger ничего не делает.
type Logger struct {
	log   *slog.Logger
	sinks []Sink
	now   func() time.Time
}

// New создаёт журнал безопасности.
func New(log *slog.Logger, sinks ...Sink) *Logger {
	return &Logger{
		log:   log.With(slog.String("component", "security")),
		sinks: sinks,
		now:   time.Now,
	}
}

// Log фиксирует событие.
func (l *Logger) Log(ctx context.Context, e Event) {
	if l == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = l.now().UTC()
	}
	if e.Severity == "" {
		e.Severity = DefaultSeverity(e.Kind)
	}
	if e.IP == "" {
		e.IP = ClientIP(ctx)
	}

	attrs := []any{
		slog.String("kind", string(e.Kind)),
		slog.String("severity", string(e.Severity)),
		slog.Time("timestamp", e.Time),
	}
	if e.UserID != 0 {
		attrs = append(attrs, sl.UserID(e.UserID))
	}
	if e.Email != "" {
		attrs = append(attrs, slog.String("email", e.Email))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, slog.Any("details", e.Details))
	}
	l.log.Log(ctx, levelFor(e.Severity), "security event", attrs...)

	for _, s := range l.sinks {
		l.write(ctx, s, e)
	}
}

func (l *Logger) write(ctx context.Context, s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("security sink panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := s.Write(ctx, e); err != nil {
		l.log.Warn("security sink failed", slog.String("kind", string(e.Kind)), sl.Err(err))
	}
}

func levelFor(s Severity) slog.Level {
	switch s {
	case SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
