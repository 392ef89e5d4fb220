package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

func TestFromError(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("services.x.Op: %w", err)
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"email taken", wrap(models.ErrEmailTaken), http.StatusBadRequest, "user with this email already exists"},
		{"already premium", wrap(models.ErrAlreadyPremium), http.StatusBadRequest, "user already has premium access"},
		{"invalid role", wrap(models.ErrInvalidRole), http.StatusBadRequest, "invalid role"},
		{"wrong current password", wrap(models.ErrWrongCurrentPassword), http.StatusBadRequest, "current password is incorrect"},
		{"invalid credentials", wrap(models.ErrInvalidCredentials), http.StatusUnauthorized, "invalid email or password"},
		{"invalid token", wrap(models.ErrInvalidToken), http.StatusForbidden, "invalid or expired token"},
		{"forbidden", wrap(models.ErrForbidden), http.StatusForbidden, "access denied"},
		{"untrusted source", wrap(models.ErrUntrustedSource), http.StatusForbidden, "access denied"},
		{"not found", wrap(models.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{"rate limited", models.ErrRateLimited, http.StatusTooManyRequests, "too many requests"},
		{"payments disabled", wrap(models.ErrPaymentsDisabled), http.StatusServiceUnavailable, "payment service is not configured"},
		{"upstream timeout", wrap(errors.Join(models.ErrUpstreamTimeout, errors.New("deadline"))), http.StatusGatewayTimeout, MsgTimeout},
		{"upstream", wrap(errors.Join(models.ErrUpstream, errors.New("yookassa: 500 internal_error: boom"))), http.StatusBadGateway, MsgUpstream},
		{"unknown", errors.New("pq: relation users does not exist"), http.StatusInternalServerError, MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Empty(t, body.Fields)
		})
	}
}

func TestFromError_Validation(t *testing.T) {
	err := fmt.Errorf("op: %w", models.NewValidationError(
		models.FieldError{Field: "email", Message: "field email must be a valid email"},
		models.FieldError{Field: "password", Message: "field password must be at least 6 characters"},
	))

	status, body := FromError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, body.Fields, 2)
	assert.Equal(t, "email", body.Fields[0].Field)
	assert.Contains(t, body.Error, "validation failed")
}

func TestRenderError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	RenderError(rec, req, models.ErrUserNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"Error","error":"user not found"}`, rec.Body.String())
}
