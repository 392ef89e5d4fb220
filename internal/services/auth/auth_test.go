package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/marketing-simulator/internal/lib/jwt"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/password"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.NewUser) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// fakeUsers хранилище в памяти для сценарных тестов
type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*models.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, u models.NewUser) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, models.ErrEmailTaken
		}
	}
	f.nextID++
	now := time.Now()
	user := &models.User{
		ID: f.nextID, Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name,
		Phone: u.Phone, Role: models.RoleUser, CreatedAt: now, UpdatedAt: now,
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// eventRecorder собирает события безопасности
type eventRecorder struct {
	mu     sync.Mutex
	events []security.Event
}

func (r *eventRecorder) Log(_ context.Context, e security.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []security.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]security.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestMaker(t *testing.T) *jwt.MakerImpl {
	t.Helper()
	maker, err := jwt.NewJWTMaker("test-secret", time.Hour)
	require.NoError(t, err)
	return maker
}

func newTestService(t *testing.T, users UserRepository) (*Service, *eventRecorder, *jwt.MakerImpl) {
	t.Helper()
	events := &eventRecorder{}
	maker := newTestMaker(t)
	svc, err := New(sl.NewDiscardLogger(), users, password.NewHasher(bcrypt.MinCost), maker, events)
	require.NoError(t, err)
	return svc, events, maker
}

func TestService_RegisterThenLogin(t *testing.T) {
	svc, events, maker := newTestService(t, newFakeUsers())
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1", Name: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, models.RoleUser, reg.User.Role)

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := maker.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	me, err := svc.GetCurrentUser(ctx, claims.ToSubject())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	assert.Equal(t, []security.Kind{security.KindRegistration, security.KindAuthSuccess}, events.kinds())
}

func TestService_Register(t *testing.T) {
	phone := "+79991234567"
	tests := []struct {
		name       string
		input      RegisterInput
		setupMocks func(r *UserRepoMock)
		wantErr    error
		wantFields []string
	}{
		{
			name:  "successful registration forces role user",
			input: RegisterInput{Email: " bob@example.com ", Password: "password123", Name: "Bob", Phone: &phone},
			setupMocks: func(r *UserRepoMock) {
				r.On("EmailExists", mock.Anything, "bob@example.com").Return(false, nil).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.NewUser) bool {
					return u.Email == "bob@example.com" &&
						u.Name == "Bob" &&
						u.PasswordHash != "" && u.PasswordHash != "password123" &&
						u.Phone != nil && *u.Phone == phone
				})).Return(&models.User{ID: 10, Email: "bob@example.com", Name: "Bob", Role: models.RoleUser}, nil).Once()
			},
		},
		{
			name:       "validation errors never reach storage",
			input:      RegisterInput{Email: "not-an-email", Password: "123", Name: ""},
			setupMocks: func(_ *UserRepoMock) {},
			wantFields: []string{"email", "password", "name"},
		},
		{
			name:       "cyrillic password over 72 bytes",
			input:      RegisterInput{Email: "bob@example.com", Password: strings.Repeat("пароль", 7), Name: "Bob"},
			setupMocks: func(_ *UserRepoMock) {},
			wantFields: []string{"password"},
		},
		{
			name:       "invalid phone",
			input:      RegisterInput{Email: "bob@example.com", Password: "password123", Name: "Bob", Phone: ptr("555")},
			setupMocks: func(_ *UserRepoMock) {},
			wantFields: []string{"phone"},
		},
		{
			name:  "email already exists",
			input: RegisterInput{Email: "bob@example.com", Password: "password123", Name: "Bob"},
			setupMocks: func(r *UserRepoMock) {
				r.On("EmailExists", mock.Anything, "bob@example.com").Return(true, nil).Once()
			},
			wantErr: models.ErrEmailTaken,
		},
		{
			name:  "racing duplicate rejected by storage",
			input: RegisterInput{Email: "bob@example.com", Password: "password123", Name: "Bob"},
			setupMocks: func(r *UserRepoMock) {
				r.On("EmailExists", mock.Anything, "bob@example.com").Return(false, nil).Once()
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, models.ErrEmailTaken).Once()
			},
			wantErr: models.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)
			svc, events, _ := newTestService(t, repo)

			got, err := svc.Register(context.Background(), tt.input)
			switch {
			case len(tt.wantFields) > 0:
				var verr *models.ValidationError
				require.ErrorAs(t, err, &verr)
				fields := make([]string, 0, len(verr.Fields))
				for _, f := range verr.Fields {
					fields = append(fields, f.Field)
				}
				assert.ElementsMatch(t, tt.wantFields, fields)
				assert.Empty(t, events.kinds())
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, events.kinds())
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, got.Token)
				assert.Equal(t, models.RoleUser, got.User.Role)
				assert.Equal(t, []security.Kind{security.KindRegistration}, events.kinds())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_LoginDoesNotRevealUnknownEmail(t *testing.T) {
	svc, events, _ := newTestService(t, newFakeUsers())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "carol@example.com", Password: "secret1", Name: "Carol"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "carol@example.com", Password: "wrong-pass"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})

	require.ErrorIs(t, wrongPassword, models.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, models.ErrInvalidCredentials)
	assert.Equal(t, errors.Unwrap(wrongPassword).Error(), errors.Unwrap(unknownEmail).Error())

	require.Len(t, events.events, 3)
	assert.Equal(t, security.KindAuthFailure, events.events[1].Kind)
	assert.Equal(t, "invalid password", events.events[1].Details["reason"])
	assert.Equal(t, security.KindAuthFailure, events.events[2].Kind)
	assert.Equal(t, "user not found", events.events[2].Details["reason"])
}

func TestService_Login(t *testing.T) {
	tests := []struct {
		name       string
		input      LoginInput
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name:       "empty fields",
			input:      LoginInput{},
			setupMocks: func(_ *UserRepoMock) {},
		},
		{
			name:  "storage failure is not reported as bad credentials",
			input: LoginInput{Email: "a@example.com", Password: "secret1"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "a@example.com").Return(nil, errors.New("db down")).Once()
			},
		},
		{
			name:  "corrupted hash",
			input: LoginInput{Email: "a@example.com", Password: "secret1"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "a@example.com").
					Return(&models.User{ID: 1, Email: "a@example.com", PasswordHash: "not-bcrypt", Role: models.RoleUser}, nil).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)
			svc, _, _ := newTestService(t, repo)

			_, err := svc.Login(context.Background(), tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetCurrentUserDeleted(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("GetUser", mock.Anything, int64(99)).Return(nil, models.ErrUserNotFound).Once()
	svc, _, _ := newTestService(t, repo)

	_, err := svc.GetCurrentUser(context.Background(), models.Subject{UserID: 99, Email: "x@example.com", Role: models.RoleUser})
	require.ErrorIs(t, err, models.ErrUserNotFound)
	repo.AssertExpectations(t)
}

func TestService_ChangePassword(t *testing.T) {
	users := newFakeUsers()
	svc, events, _ := newTestService(t, users)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "dave@example.com", Password: "oldpass1", Name: "Dave"})
	require.NoError(t, err)
	subject := models.Subject{UserID: reg.User.ID, Email: reg.User.Email, Role: reg.User.Role}

	before, err := users.GetUser(ctx, subject.UserID)
	require.NoError(t, err)

	t.Run("wrong current password leaves hash unchanged", func(t *testing.T) {
		err := svc.ChangePassword(ctx, subject, ChangePasswordInput{CurrentPassword: "bad-pass", NewPassword: "newpass1"})
		require.ErrorIs(t, err, models.ErrWrongCurrentPassword)

		after, err := users.GetUser(ctx, subject.UserID)
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)

		_, err = svc.Login(ctx, LoginInput{Email: "dave@example.com", Password: "oldpass1"})
		require.NoError(t, err)
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		err := svc.ChangePassword(ctx, subject, ChangePasswordInput{
			CurrentPassword: "oldpass1", NewPassword: "newpass1", ConfirmPassword: "newpass2",
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("short new password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, subject, ChangePasswordInput{CurrentPassword: "oldpass1", NewPassword: "123"})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("new password over 72 bytes", func(t *testing.T) {
		err := svc.ChangePassword(ctx, subject, ChangePasswordInput{
			CurrentPassword: "oldpass1", NewPassword: strings.Repeat("пароль", 7),
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "newPassword", verr.Fields[0].Field)

		after, err := users.GetUser(ctx, subject.UserID)
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})

	t.Run("success", func(t *testing.T) {
		err := svc.ChangePassword(ctx, subject, ChangePasswordInput{
			CurrentPassword: "oldpass1", NewPassword: "newpass1", ConfirmPassword: "newpass1",
		})
		require.NoError(t, err)

		_, err = svc.Login(ctx, LoginInput{Email: "dave@example.com", Password: "oldpass1"})
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
		_, err = svc.Login(ctx, LoginInput{Email: "dave@example.com", Password: "newpass1"})
		require.NoError(t, err)
	})

	assert.Contains(t, events.kinds(), security.KindPasswordChangeFailure)
	assert.Contains(t, events.kinds(), security.KindPasswordChangeSuccess)
}

func ptr(s string) *string { return &s }
