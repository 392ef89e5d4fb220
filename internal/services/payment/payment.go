// Package payment создаёт платежи в ЮKassa, проверяет их статус и обрабатывает
// уведомления шлюза. Роль пользователя меняется только на основании данных,
// полученных от самого шлюза, и только условным обновлением, поэтому
// опрос статуса и уведомления можно безопасно выполнять параллельно и повторно.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
	"github.com/magabrotheeeer/marketing-simulator/internal/yookassa"
)

// Gateway клиент платёжного шлюза.
type Gateway interface {
	CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest, idempotenceKey string) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
}

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpgradeToPremium(ctx context.Context, id int64) (bool, error)
}

// StatusCache кэш завершённых платежей.
type StatusCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// SecurityLogger журнал событий безопасности.
type SecurityLogger interface {
	Log(ctx context.Context, e security.Event)
}

const (
	description   = "Premium access"
	statusTTL     = 24 * time.Hour
	statusKeyBase = "payment:"
)

// Service оркестратор платежей.
type Service struct {
	log       *slog.Logger
	gateway   Gateway
	users     UserRepository
	events    SecurityLogger
	cache     StatusCache
	price     decimal.Decimal
	priceText string
	currency  string
	returnURL string
	newKey    func() string
}

// New создаёт сервис. gateway равен nil, если учётные данные ЮKassa не заданы:
// тогда операции с платежами возвращают models.ErrPaymentsDisabled.
// cache может быть nil.
func New(log *slog.Logger, gateway Gateway, users UserRepository, events SecurityLogger, cache StatusCache, cfg config.YooKassa) (*Service, error) {
	const op = "services.payment.New"

	price, err := decimal.NewFromString(cfg.Price)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid price %q: %w", op, cfg.Price, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%s: price must be positive, got %s", op, cfg.Price)
	}

	return &Service{
		log:       log,
		gateway:   gateway,
		users:     users,
		events:    events,
		cache:     cache,
		price:     price,
		priceText: price.StringFixed(2),
		currency:  cfg.Currency,
		returnURL: cfg.ReturnURL,
		newKey:    uuid.NewString,
	}, nil
}

func (s *Service) logger(ctx context.Context, op string) *slog.Logger {
	return s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)
}

// CreatePayment создаёт платёж на покупку премиум-доступа.
// Роль проверяется по базе, а не по токену. В metadata платежа записываются
// идентификатор и email из строки пользователя.
func (s *Service) CreatePayment(ctx context.Context, req models.UntrustedPaymentRequest) (*models.PaymentResult, error) {
	const op = "services.payment.CreatePayment"
	log := s.logger(ctx, op)

	if s.gateway == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentsDisabled)
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// у администратора премиум-доступ уже есть
	if user.Role == models.RolePremium || user.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAlreadyPremium)
	}

	key := s.newKey()
	payment, err := s.gateway.CreatePayment(ctx, yookassa.CreatePaymentRequest{
		Amount:  yookassa.Amount{Value: s.priceText, Currency: s.currency},
		Capture: true,
		Confirmation: yookassa.Confirmation{
			Type:      yookassa.ConfirmationRedirect,
			ReturnURL: s.returnURL,
		},
		Description: description,
		Metadata: map[string]string{
			yookassa.MetadataUserID:    strconv.FormatInt(user.ID, 10),
			yookassa.MetadataUserEmail: user.Email,
		},
	}, key)
	if err != nil {
		log.Error("failed to create payment", sl.UserID(user.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	confirmationURL := ""
	if payment.Confirmation != nil {
		confirmationURL = payment.Confirmation.ConfirmationURL
	}
	log.Info("payment created",
		sl.UserID(user.ID),
		slog.String("payment_id", payment.ID),
		slog.String("idempotence_key", key),
	)

	return &models.PaymentResult{
		PaymentID:       payment.ID,
		ConfirmationURL: confirmationURL,
		Status:          models.PaymentStatus(payment.Status),
		Amount:          payment.Amount.Value,
		Currency:        payment.Amount.Currency,
	}, nil
}

// GetStatus запрашивает платёж у шлюза. Пользователь видит только свои платежи.
// Оплаченный платёж повышает роль, повторные вызовы роль уже не меняют.
func (s *Service) GetStatus(ctx context.Context, paymentID string, requesterID int64) (*models.PaymentStatusResult, error) {
	const op = "services.payment.GetStatus"
	log := s.logger(ctx, op)

	if s.gateway == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentsDisabled)
	}

	if vp, ok := s.cached(ctx, log, paymentID); ok {
		if err := s.checkOwner(ctx, vp, requesterID, resourceStatus); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return statusResult(vp), nil
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		log.Error("failed to fetch payment", slog.String("payment_id", paymentID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	vp := payment.Verified()

	if err := s.checkOwner(ctx, vp, requesterID, resourceStatus); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if vp.Settled() {
		if s.matchesPrice(vp) {
			if _, err := s.upgrade(ctx, vp, "status"); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		} else {
			log.Warn("settled payment amount does not match price",
				slog.String("payment_id", vp.ID),
				slog.String("amount", vp.Amount),
				slog.String("currency", vp.Currency),
			)
		}
	}

	if vp.Status == models.PaymentSucceeded || vp.Status == models.PaymentCanceled {
		s.store(ctx, log, vp)
	}

	return statusResult(vp), nil
}

// VerifySettled проверяет у шлюза, что платёж принадлежит пользователю,
// оплачен и соответствует цене премиум-доступа.
func (s *Service) VerifySettled(ctx context.Context, paymentID string, userID int64) error {
	const op = "services.payment.VerifySettled"

	if s.gateway == nil {
		return fmt.Errorf("%s: %w", op, models.ErrPaymentsDisabled)
	}
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	vp := payment.Verified()
	if err := s.checkOwner(ctx, vp, userID, resourceUpgrade); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !vp.Settled() || !s.matchesPrice(vp) {
		return fmt.Errorf("%s: payment %s is not settled: %w", op, vp.ID, models.ErrForbidden)
	}
	return nil
}

// HandleNotification обрабатывает уведомление, источник которого уже проверен.
// Если клиент шлюза настроен, состояние платежа перечитывается из API и
// тело уведомления используется только как подсказка.
func (s *Service) HandleNotification(ctx context.Context, n yookassa.Notification) error {
	const op = "services.payment.HandleNotification"
	log := s.logger(ctx, op).With(
		slog.String("event", n.Event),
		slog.String("payment_id", n.Object.ID),
	)

	switch n.Event {
	case yookassa.EventPaymentSucceeded:
	case yookassa.EventPaymentCanceled:
		log.Info("payment canceled", sl.UserID(n.Object.UserID()))
		return nil
	default:
		log.Info("ignored webhook event")
		return nil
	}

	vp := n.Object.Verified()
	if s.gateway != nil {
		payment, err := s.gateway.GetPayment(ctx, n.Object.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		vp = payment.Verified()
	}

	if vp.UserID == 0 {
		log.Warn("payment has no user in metadata, skipping")
		return nil
	}
	if !vp.Settled() {
		log.Warn("payment is not settled, skipping", slog.String("status", string(vp.Status)))
		return nil
	}
	if !s.matchesPrice(vp) {
		log.Warn("payment amount does not match price, skipping",
			slog.String("amount", vp.Amount),
			slog.String("currency", vp.Currency),
		)
		return nil
	}

	user, err := s.users.GetUser(ctx, vp.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("payment user does not exist, skipping", sl.UserID(vp.UserID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.Role == models.RolePremium {
		log.Info("user already premium, skipping", sl.UserID(user.ID))
		return nil
	}

	if _, err := s.upgrade(ctx, vp, "webhook"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// upgrade выполняет условное повышение роли и пишет событие,
// только если строка действительно изменилась.
func (s *Service) upgrade(ctx context.Context, vp models.VerifiedPayment, source string) (bool, error) {
	changed, err := s.users.UpgradeToPremium(ctx, vp.UserID)
	if err != nil {
		return false, err
	}
	if changed {
		s.events.Log(ctx, security.Event{
			Kind:   security.KindPaymentUpgrade,
			UserID: vp.UserID,
			Details: map[string]any{
				"payment_id": vp.ID,
				"amount":     vp.Amount,
				"currency":   vp.Currency,
				"source":     source,
			},
		})
		s.logger(ctx, "services.payment.upgrade").Info("user upgraded to premium",
			sl.UserID(vp.UserID),
			slog.String("payment_id", vp.ID),
			slog.String("source", source),
		)
	}
	return changed, nil
}

// Ресурсы, которые попадают в журнал при обращении к чужому платежу.
const (
	resourceStatus  = "payment.status"
	resourceUpgrade = "users.upgrade_to_premium"
)

func (s *Service) checkOwner(ctx context.Context, vp models.VerifiedPayment, requesterID int64, resource string) error {
	if vp.UserID != 0 && vp.UserID == requesterID {
		return nil
	}
	s.events.Log(ctx, security.Event{
		Kind:   security.KindUnauthorizedAccess,
		UserID: requesterID,
		Details: map[string]any{
			"resource":   resource,
			"payment_id": vp.ID,
		},
	})
	return models.ErrForbidden
}

func (s *Service) matchesPrice(vp models.VerifiedPayment) bool {
	if vp.Currency != s.currency {
		return false
	}
	amount, err := decimal.NewFromString(vp.Amount)
	if err != nil {
		return false
	}
	return amount.Equal(s.price)
}

func (s *Service) cached(ctx context.Context, log *slog.Logger, paymentID string) (models.VerifiedPayment, bool) {
	var vp models.VerifiedPayment
	if s.cache == nil {
		return vp, false
	}
	found, err := s.cache.Get(ctx, statusKeyBase+paymentID, &vp)
	if err != nil {
		log.Warn("payment cache read failed", sl.Err(err))
		return vp, false
	}
	return vp, found
}

func (s *Service) store(ctx context.Context, log *slog.Logger, vp models.VerifiedPayment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, statusKeyBase+vp.ID, vp, statusTTL); err != nil {
		log.Warn("payment cache write failed", sl.Err(err))
	}
}

func statusResult(vp models.VerifiedPayment) *models.PaymentStatusResult {
	return &models.PaymentStatusResult{
		PaymentID: vp.ID,
		Status:    vp.Status,
		Paid:      vp.Paid,
		Amount:    vp.Amount,
		Currency:  vp.Currency,
	}
}
