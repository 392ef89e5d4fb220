// Package users содержит операции администрирования пользователей
// и ручное повышение роли до premium_user.
package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetRole(ctx context.Context, id int64, role models.Role) (*models.User, error)
	UpgradeToPremium(ctx context.Context, id int64) (bool, error)
}

// PaymentVerifier подтверждает у платёжного шлюза, что платёж пользователя оплачен.
type PaymentVerifier interface {
	VerifySettled(ctx context.Context, paymentID string, userID int64) error
}

// SecurityLogger журнал событий безопасности.
type SecurityLogger interface {
	Log(ctx context.Context, e security.Event)
}

// Service операции над пользователями.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	payments PaymentVerifier
	events   SecurityLogger
}

// New создаёт сервис.
func New(log *slog.Logger, users UserRepository, payments PaymentVerifier, events SecurityLogger) *Service {
	return &Service{
		log:      log,
		users:    users,
		payments: payments,
		events:   events,
	}
}

// List возвращает всех пользователей без хэшей паролей.
func (s *Service) List(ctx context.Context, actor models.Subject) ([]models.PublicUser, error) {
	const op = "services.users.List"

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public())
	}

	s.events.Log(ctx, security.Event{
		Kind:    security.KindAdminAction,
		UserID:  actor.UserID,
		Email:   actor.Email,
		Details: map[string]any{"action": "list_users", "count": len(result)},
	})
	return result, nil
}

// SetRole устанавливает пользователю любую из известных ролей.
func (s *Service) SetRole(ctx context.Context, actor models.Subject, targetID int64, role string) (*models.PublicUser, error) {
	const op = "services.users.SetRole"
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)

	newRole := models.Role(strings.TrimSpace(role))
	if !newRole.Valid() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
	}

	user, err := s.users.SetRole(ctx, targetID, newRole)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Log(ctx, security.Event{
		Kind:   security.KindAdminAction,
		UserID: actor.UserID,
		Email:  actor.Email,
		Details: map[string]any{
			"action":    "set_role",
			"target_id": targetID,
			"role":      string(newRole),
		},
	})
	log.Info("role changed", sl.UserID(targetID), slog.String("role", string(newRole)))

	public := user.Public()
	return &public, nil
}

// UpgradeToPremium повышает роль пользователя до premium_user.
// Администратор может повысить любого пользователя. Пользователь может
// повысить только себя и только предъявив оплаченный платёж, который
// подтверждается запросом к платёжному шлюзу.
func (s *Service) UpgradeToPremium(ctx context.Context, actor models.Subject, targetID int64, paymentID string) (*models.PublicUser, error) {
	const op = "services.users.UpgradeToPremium"
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)

	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin {
		if actor.UserID != targetID {
			s.events.Log(ctx, security.Event{
				Kind:    security.KindUnauthorizedAccess,
				UserID:  actor.UserID,
				Email:   actor.Email,
				Details: map[string]any{"resource": "users.upgrade_to_premium", "target_id": targetID},
			})
			return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
		}
		paymentID = strings.TrimSpace(paymentID)
		if paymentID == "" {
			return nil, models.NewValidationError(models.FieldError{
				Field:   "paymentId",
				Message: "field paymentId is a required field",
			})
		}
		if err := s.payments.VerifySettled(ctx, paymentID, actor.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	changed, err := s.users.UpgradeToPremium(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if changed {
		details := map[string]any{"source": "manual"}
		if paymentID != "" {
			details["payment_id"] = paymentID
		}
		s.events.Log(ctx, security.Event{
			Kind:    security.KindPaymentUpgrade,
			UserID:  targetID,
			Details: details,
		})
		log.Info("user upgraded to premium", sl.UserID(targetID))
	}
	if isAdmin {
		s.events.Log(ctx, security.Event{
			Kind:   security.KindAdminAction,
			UserID: actor.UserID,
			Email:  actor.Email,
			Details: map[string]any{
				"action":    "upgrade_to_premium",
				"target_id": targetID,
				"changed":   changed,
			},
		})
	}

	user, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	public := user.Public()
	return &public, nil
}
