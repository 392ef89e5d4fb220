package security

import "context"

type clientIPKey struct{}

// WithClientIP сохраняет адрес клиента в контексте запроса.
// Logger подставляет его в события без явного IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP адрес клиента из контекста или пустая строка.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
