// Package jwt реализует выпуск и проверку подписанных токенов доступа.
//
// Maker определяет интерфейс для создания и проверки JWT токенов с идентификатором,
// email и ролью пользователя. MakerImpl: реализация на HMAC-SHA256 с секретным ключом
// и фиксированным временем жизни.
package jwt

import (
	"errors"
	"time"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// DefaultTTL время жизни токена доступа.
const DefaultTTL = 24 * time.Hour

// ErrEmptySecret возвращается при попытке создать Maker без ключа подписи.
var ErrEmptySecret = errors.New("jwt: secret key must not be empty")

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя.
	GenerateToken(subject models.Subject) (string, error)
	// ParseToken проверяет подпись и срок действия и возвращает данные пользователя.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey []byte        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl. Пустой ключ недопустим:
// сервис не должен стартовать с небезопасным ключом по умолчанию.
func NewJWTMaker(secretKey string, ttl time.Duration) (*MakerImpl, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}, nil
}
