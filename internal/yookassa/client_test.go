package yookassa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.YooKassa{
		ShopID:    "123456",
		SecretKey: "test_secret",
		APIURL:    srv.URL + "/",
		Timeout:   timeout,
	})
}

func TestClient_CreatePayment(t *testing.T) {
	var gotReq CreatePaymentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotence-Key"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "123456", user)
		assert.Equal(t, "test_secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "2d4f1b2a-000f-5000-9000-1a2b3c4d5e6f",
			"status": "pending",
			"paid": false,
			"amount": {"value": "990.00", "currency": "RUB"},
			"confirmation": {"type": "redirect", "confirmation_url": "https://yoomoney.ru/checkout/payments/v2/contract?orderId=2d4f"},
			"metadata": {"userId": "42", "userEmail": "alice@example.com"},
			"created_at": "2025-03-01T12:00:00.000Z"
		}`))
	}, time.Second)

	payment, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:       Amount{Value: "990.00", Currency: "RUB"},
		Capture:      true,
		Confirmation: Confirmation{Type: ConfirmationRedirect, ReturnURL: "http://localhost:3000/payment/result"},
		Description:  "Premium access",
		Metadata:     map[string]string{MetadataUserID: "42", MetadataUserEmail: "alice@example.com"},
	}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "2d4f1b2a-000f-5000-9000-1a2b3c4d5e6f", payment.ID)
	assert.Equal(t, "pending", payment.Status)
	require.NotNil(t, payment.Confirmation)
	assert.Contains(t, payment.Confirmation.ConfirmationURL, "orderId=2d4f")
	assert.Equal(t, int64(42), payment.UserID())

	assert.True(t, gotReq.Capture)
	assert.Equal(t, ConfirmationRedirect, gotReq.Confirmation.Type)
	assert.Equal(t, "42", gotReq.Metadata[MetadataUserID])
}

func TestClient_GetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/pay-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pay-1","status":"succeeded","paid":true,
			"amount":{"value":"990.00","currency":"RUB"},"metadata":{"userId":"7"}}`))
	}, time.Second)

	payment, err := client.GetPayment(context.Background(), "pay-1")
	require.NoError(t, err)

	verified := payment.Verified()
	assert.Equal(t, models.VerifiedPayment{
		ID:       "pay-1",
		Status:   models.PaymentSucceeded,
		Paid:     true,
		Amount:   "990.00",
		Currency: "RUB",
		UserID:   7,
	}, verified)
	assert.True(t, verified.Settled())
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
		check   func(t *testing.T, err error)
	}{
		{
			name: "api error body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"type":"error","id":"e1","code":"invalid_credentials","description":"Login or password is incorrect"}`))
			},
			wantErr: models.ErrUpstream,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
				assert.Equal(t, "invalid_credentials", apiErr.Code)
			},
		},
		{
			name: "non json error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			},
			wantErr: models.ErrUpstream,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "unexpected_status", apiErr.Code)
			},
		},
		{
			name: "malformed success body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
			wantErr: models.ErrUpstream,
		},
		{
			name: "timeout",
			handler: func(_ http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}
			},
			wantErr: models.ErrUpstreamTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, 50*time.Millisecond)
			_, err := client.GetPayment(context.Background(), "pay-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CreatePayment(ctx, CreatePaymentRequest{}, "k")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstreamTimeout))
}

func TestPayment_UserID(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		want     int64
	}{
		{"present", map[string]string{"userId": "15"}, 15},
		{"missing", map[string]string{"userEmail": "a@b.c"}, 0},
		{"nil metadata", nil, 0},
		{"not a number", map[string]string{"userId": "abc"}, 0},
		{"negative", map[string]string{"userId": "-3"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payment{Metadata: tt.metadata}
			assert.Equal(t, tt.want, p.UserID())
		})
	}
}
