package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/marketing-simulator/internal/cache"
	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/jwt"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/password"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/migrations"
	"github.com/magabrotheeeer/marketing-simulator/internal/rabbitmq"
	"github.com/magabrotheeeer/marketing-simulator/internal/ratelimit"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
	authservice "github.com/magabrotheeeer/marketing-simulator/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/marketing-simulator/internal/services/payment"
	usersservice "github.com/magabrotheeeer/marketing-simulator/internal/services/users"
	"github.com/magabrotheeeer/marketing-simulator/internal/storage/repository"
	"github.com/magabrotheeeer/marketing-simulator/internal/yookassa"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервер со всеми зависимостями.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	amqpConn  *amqp.Connection
	publisher *rabbitmq.Publisher
}

// New подключает хранилища, применяет миграции и собирает маршруты.
// Redis и RabbitMQ необязательны: без Redis лимиты хранятся в памяти,
// без RabbitMQ события безопасности не публикуются в брокер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "app.simulator.New"
	app := &App{logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	tokens, err := jwt.NewJWTMaker(cfg.JWTSecretKey, jwt.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app.db, err = repository.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(app.db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = repository.CheckDatabaseReady(ctx, app.db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := middlewarectx.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metricsSink, err := security.NewMetricsSink(registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sinks := []security.Sink{metricsSink}

	if cfg.RabbitMQ.URL != "" {
		app.amqpConn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(app.amqpConn, cfg.RabbitMQ.Exchange, rabbitmq.SecurityQueues())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.publisher = rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		sinks = append(sinks, security.NewBrokerSink(app.publisher))
		logger.Info("security events are published to rabbitmq", slog.String("exchange", cfg.RabbitMQ.Exchange))
	}
	events := security.New(logger, sinks...)

	limiterFactory := func(_ string, l config.Limit) ratelimit.Limiter {
		return ratelimit.NewMemory(l)
	}
	var statusCache paymentservice.StatusCache
	if cfg.AddressRedis != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		client := app.cache.Db
		limiterFactory = func(name string, l config.Limit) ratelimit.Limiter {
			return ratelimit.NewRedis(client, name, l)
		}
		statusCache = app.cache
		logger.Info("rate limits are stored in redis", slog.String("address", cfg.AddressRedis))
	}

	var gateway paymentservice.Gateway
	if cfg.YooKassa.Enabled() {
		gateway = yookassa.NewClient(cfg.YooKassa)
	} else {
		logger.Warn("yookassa credentials are not set, payments are disabled")
	}

	authSvc, err := authservice.New(logger, app.db, password.NewHasher(bcrypt.DefaultCost), tokens, events)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paymentSvc, err := paymentservice.New(logger, gateway, app.db, events, statusCache, cfg.YooKassa)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	usersSvc := usersservice.New(logger, app.db, paymentSvc, events)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Dependencies{
		Auth:           authSvc,
		Users:          usersSvc,
		Payment:        paymentSvc,
		Tokens:         tokens,
		Events:         events,
		Limiter:        limiterFactory,
		RateLimits:     cfg.RateLimits,
		WebhookFilter:  yookassa.NewIPFilter(!cfg.IsProduction()),
		WebhookSecret:  cfg.YooKassa.WebhookSecret,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		TrustProxy:     cfg.TrustProxy,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close amqp channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", sl.Err(err))
		}
	}
}
