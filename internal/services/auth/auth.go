// Package auth содержит логику регистрации, входа и смены пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/marketing-simulator/internal/lib/jwt"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/password"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/validate"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.NewUser) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SecurityLogger журнал событий безопасности.
type SecurityLogger interface {
	Log(ctx context.Context, e security.Event)
}

// RegisterInput данные регистрации.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72,bcryptmax"`
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// LoginInput данные входа.
type LoginInput struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72,bcryptmax"`
}

// ChangePasswordInput данные смены пароля.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=72,bcryptmax"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72,bcryptmax"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=NewPassword"`
}

// Service отвечает за регистрацию, вход, профиль и смену пароля.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	hasher   PasswordHasher
	jwtMaker jwt.Maker
	events   SecurityLogger
	validate *validate.Validator
	// dummyHash сравнивается с паролем, когда email не найден,
	// чтобы время ответа не выдавало существование пользователя.
	dummyHash string
}

// New создаёт сервис аутентификации.
func New(log *slog.Logger, users UserRepository, hasher PasswordHasher, jwtMaker jwt.Maker, events SecurityLogger) (*Service, error) {
	dummy, err := hasher.Hash("timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("auth.New: %w", err)
	}
	return &Service{
		log:       log,
		users:     users,
		hasher:    hasher,
		jwtMaker:  jwtMaker,
		events:    events,
		validate:  validate.New(),
		dummyHash: dummy,
	}, nil
}

func (s *Service) logger(ctx context.Context, op string) *slog.Logger {
	return s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)
}

// Register создаёт пользователя с ролью user и выдаёт токен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.AuthResult, error) {
	const op = "services.auth.Register"
	log := s.logger(ctx, op)

	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Phone != nil && strings.TrimSpace(*in.Phone) == "" {
		in.Phone = nil
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	// уникальный индекс остаётся источником истины, проверка нужна для понятной ошибки
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Phone:        in.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Log(ctx, security.Event{
		Kind:   security.KindRegistration,
		UserID: user.ID,
		Email:  user.Email,
	})
	log.Info("user registered", sl.UserID(user.ID))

	return &models.AuthResult{Token: token, User: user.Public()}, nil
}

// Login проверяет email и пароль. Для неизвестного email и неверного пароля
// возвращается одна и та же ошибка models.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.AuthResult, error) {
	const op = "services.auth.Login"
	log := s.logger(ctx, op)

	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		_ = s.hasher.Compare(s.dummyHash, in.Password)
		s.events.Log(ctx, security.Event{
			Kind:    security.KindAuthFailure,
			Email:   in.Email,
			Details: map[string]any{"reason": "user not found"},
		})
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			log.Error("stored password hash is corrupted", sl.UserID(user.ID), sl.Err(err))
		}
		s.events.Log(ctx, security.Event{
			Kind:    security.KindAuthFailure,
			UserID:  user.ID,
			Email:   user.Email,
			Details: map[string]any{"reason": "invalid password"},
		})
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.events.Log(ctx, security.Event{
		Kind:   security.KindAuthSuccess,
		UserID: user.ID,
		Email:  user.Email,
	})
	log.Info("user logged in", sl.UserID(user.ID))

	return &models.AuthResult{Token: token, User: user.Public()}, nil
}

// GetCurrentUser возвращает профиль пользователя из токена по данным базы.
func (s *Service) GetCurrentUser(ctx context.Context, subject models.Subject) (*models.PublicUser, error) {
	const op = "services.auth.GetCurrentUser"

	user, err := s.users.GetUser(ctx, subject.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	public := user.Public()
	return &public, nil
}

// ChangePassword меняет пароль после повторной проверки текущего.
// Уже выданные токены остаются действительными до истечения срока.
func (s *Service) ChangePassword(ctx context.Context, subject models.Subject, in ChangePasswordInput) error {
	const op = "services.auth.ChangePassword"
	log := s.logger(ctx, op)

	if err := s.validate.Struct(in); err != nil {
		return err
	}

	user, err := s.users.GetUser(ctx, subject.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, in.CurrentPassword); err != nil {
		s.events.Log(ctx, security.Event{
			Kind:    security.KindPasswordChangeFailure,
			UserID:  user.ID,
			Email:   user.Email,
			Details: map[string]any{"reason": "invalid current password"},
		})
		return fmt.Errorf("%s: %w", op, models.ErrWrongCurrentPassword)
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.events.Log(ctx, security.Event{
		Kind:   security.KindPasswordChangeSuccess,
		UserID: user.ID,
		Email:  user.Email,
	})
	log.Info("password changed", sl.UserID(user.ID))
	return nil
}

func (s *Service) issue(user *models.User) (string, error) {
	return s.jwtMaker.GenerateToken(models.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
}
