// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
//
// Конфигурация читается из YAML-файла (CONFIG_PATH) с переопределением через
// переменные окружения, либо только из окружения, если CONFIG_PATH не задан.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения, в которых может работать сервис.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// ErrMissingJWTSecret возвращается, если не задан ключ подписи токенов.
var ErrMissingJWTSecret = errors.New("jwt secret key is not set")

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"APP_ENV" env-default:"local"`
	MigrationsPath  string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Database        `yaml:"database"`
	HTTPServer      `yaml:"http_server"`
	JWTToken        `yaml:"jwttoken"`
	YooKassa        `yaml:"yookassa"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	RateLimits      `yaml:"rate_limits"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// TrustProxy разрешает брать адрес клиента из X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY"`
}

// Database параметры подключения к PostgreSQL
type Database struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"marketing_simulator"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// JWTToken структура для работы с jwt-токеном. Срок жизни токена
// фиксирован (jwt.DefaultTTL) и не настраивается.
type JWTToken struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET"`
}

// YooKassa настройки платёжного шлюза. Пустые ShopID или SecretKey
// отключают создание платежей, остальной сервис продолжает работать.
type YooKassa struct {
	ShopID        string        `yaml:"shop_id" env:"YOOKASSA_SHOP_ID"`
	SecretKey     string        `yaml:"secret_key" env:"YOOKASSA_SECRET_KEY"`
	APIURL        string        `yaml:"api_url" env:"YOOKASSA_API_URL" env-default:"https://api.yookassa.ru/v3"`
	Timeout       time.Duration `yaml:"timeout" env:"YOOKASSA_TIMEOUT" env-default:"10s"`
	ReturnURL     string        `yaml:"return_url" env:"YOOKASSA_RETURN_URL" env-default:"http://localhost:3000/payment/result"`
	Price         string        `yaml:"price" env:"PREMIUM_PRICE" env-default:"990.00"`
	Currency      string        `yaml:"currency" env:"PREMIUM_CURRENCY" env-default:"RUB"`
	WebhookSecret string        `yaml:"webhook_secret" env:"YOOKASSA_WEBHOOK_SECRET"`
}

// Enabled сообщает, заданы ли учётные данные магазина.
func (y YooKassa) Enabled() bool {
	return y.ShopID != "" && y.SecretKey != ""
}

// RedisConnection структура для настройки подключения к redis.
// Если адрес пуст, лимиты запросов хранятся в памяти процесса.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ настройки публикации событий безопасности. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"security_events"`
}

// Limit количество запросов за окно.
type Limit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// RateLimits лимиты по эндпоинтам.
type RateLimits struct {
	Login    Limit `yaml:"login"`
	Register Limit `yaml:"register"`
	Password Limit `yaml:"password"`
	Webhook  Limit `yaml:"webhook"`
}

// MinLimitWindow наименьшее допустимое окно лимита.
const MinLimitWindow = time.Second

// DefaultRateLimits значения, которые используются для незаданных лимитов.
var DefaultRateLimits = RateLimits{
	Login:    Limit{Requests: 5, Window: 15 * time.Minute},
	Register: Limit{Requests: 10, Window: time.Hour},
	Password: Limit{Requests: 5, Window: 15 * time.Minute},
	Webhook:  Limit{Requests: 100, Window: time.Minute},
}

// Load читает и проверяет конфигурацию.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read env: %w", op, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.AddressHTTP == "" {
		if c.IsProduction() {
			c.AddressHTTP = ":8080"
		} else {
			c.AddressHTTP = ":3001"
		}
	}
	rl := &c.RateLimits
	rl.Login = withDefault(rl.Login, DefaultRateLimits.Login)
	rl.Register = withDefault(rl.Register, DefaultRateLimits.Register)
	rl.Password = withDefault(rl.Password, DefaultRateLimits.Password)
	rl.Webhook = withDefault(rl.Webhook, DefaultRateLimits.Webhook)
}

func withDefault(l, def Limit) Limit {
	if l.Requests <= 0 {
		l.Requests = def.Requests
	}
	if l.Window <= 0 {
		l.Window = def.Window
	}
	return l
}

// Validate проверяет обязательные поля.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	if c.JWTSecretKey == "" {
		return ErrMissingJWTSecret
	}
	limits := map[string]Limit{
		"login":    c.RateLimits.Login,
		"register": c.RateLimits.Register,
		"password": c.RateLimits.Password,
		"webhook":  c.RateLimits.Webhook,
	}
	for name, l := range limits {
		if err := l.validate(); err != nil {
			return fmt.Errorf("rate limit %s: %w", name, err)
		}
	}
	return nil
}

// validate отклоняет окна, при которых интервал пополнения округляется до нуля
// и лимитер перестаёт ограничивать.
func (l Limit) validate() error {
	if l.Window < MinLimitWindow {
		return fmt.Errorf("window must be at least %s, got %s", MinLimitWindow, l.Window)
	}
	if l.Window/time.Duration(l.Requests) <= 0 {
		return fmt.Errorf("window %s is too short for %d requests", l.Window, l.Requests)
	}
	return nil
}

// IsProduction сообщает, запущен ли сервис в продакшене.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

// DSN строка подключения к PostgreSQL.
func (d Database) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Database: %s@%s:%d/%s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"YooKassa:\n"+
			"  Enabled: %t\n"+
			"  Price: %s %s\n"+
			"Redis: %s\n",
		c.Env,
		c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.YooKassa.Enabled(),
		c.Price, c.Currency,
		c.AddressRedis,
	)
}
