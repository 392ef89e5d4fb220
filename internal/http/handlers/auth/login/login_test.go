package login

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, in auth.LoginInput) (*models.AuthResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*models.AuthResult)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func serve(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return rec, got
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	svc := new(AuthServiceMock)
	handler := New(newNoopLogger(), svc)

	svc.On("Login", mock.Anything, auth.LoginInput{Email: "alice@example.com", Password: "secret1"}).
		Return(&models.AuthResult{Token: "tok", User: models.PublicUser{ID: 1, Email: "alice@example.com", Role: models.RoleUser}}, nil).Once()

	rec, got := serve(t, handler, `{"email":"alice@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", got["status"])
	assert.Equal(t, "tok", got["data"].(map[string]any)["token"])

	rec, got = serve(t, handler, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", got["error"])

	svc.AssertExpectations(t)
}

func TestLoginHandler_SameResponseForUnknownEmailAndWrongPassword(t *testing.T) {
	svc := new(AuthServiceMock)
	handler := New(newNoopLogger(), svc)

	svc.On("Login", mock.Anything, auth.LoginInput{Email: "ghost@example.com", Password: "secret1"}).
		Return(nil, fmt.Errorf("services.auth.Login: %w", models.ErrInvalidCredentials)).Once()
	svc.On("Login", mock.Anything, auth.LoginInput{Email: "alice@example.com", Password: "wrong11"}).
		Return(nil, fmt.Errorf("services.auth.Login: %w", models.ErrInvalidCredentials)).Once()

	recUnknown, _ := serve(t, handler, `{"email":"ghost@example.com","password":"secret1"}`)
	recWrong, _ := serve(t, handler, `{"email":"alice@example.com","password":"wrong11"}`)

	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, recUnknown.Code, recWrong.Code)
	assert.Equal(t, recUnknown.Body.String(), recWrong.Body.String())
	svc.AssertExpectations(t)
}
