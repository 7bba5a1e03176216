package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	secret := "sk_test_secret"

	assert.True(t, VerifySignature(body, sign(body, secret), secret))
	assert.True(t, VerifySignature(body, "  "+sign(body, secret)+"  ", secret), "surrounding whitespace tolerated")

	assert.False(t, VerifySignature(body, sign(body, "sk_other"), secret))
	assert.False(t, VerifySignature([]byte(`{"event":"tampered"}`), sign(body, secret), secret))
	assert.False(t, VerifySignature(body, "", secret))
	assert.False(t, VerifySignature(body, sign(body, secret), ""))
	assert.False(t, VerifySignature(nil, sign(body, secret), secret))
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/inv_42_1700000000000", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"reference": "inv_42_1700000000000",
				"status": "success",
				"amount": 46750,
				"currency": "NGN",
				"channel": "card",
				"fees": 702,
				"gateway_response": "Successful",
				"paid_at": "2026-03-10T12:00:00Z",
				"customer": {"email": "ada@example.com"}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	charge, err := client.VerifyTransaction(context.Background(), "sk_test_abc", "inv_42_1700000000000")
	require.NoError(t, err)

	assert.Equal(t, "inv_42_1700000000000", charge.Reference)
	assert.True(t, charge.Successful())
	assert.Equal(t, int64(46750), charge.AmountMinor)
	assert.Equal(t, "NGN", charge.Currency)
	assert.Equal(t, int64(702), charge.FeesMinor)
	assert.Equal(t, "ada@example.com", charge.CustomerEmail)
	require.NotNil(t, charge.PaidAt)
}

func TestVerifyTransactionFailedCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": true,
			"data": {"reference": "r1", "status": "failed", "amount": 1000, "currency": "NGN"}
		}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	charge, err := client.VerifyTransaction(context.Background(), "sk_test_abc", "r1")
	require.NoError(t, err)
	assert.False(t, charge.Successful())
}

func TestVerifyTransactionRequiresSecret(t *testing.T) {
	client := NewClient()
	_, err := client.VerifyTransaction(context.Background(), "  ", "r1")
	assert.ErrorIs(t, err, ErrSecretKeyMissing)
}

func TestVerifyTransactionGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	_, err := client.VerifyTransaction(context.Background(), "sk_test_abc", "missing")
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Contains(t, err.Error(), "Transaction reference not found")
}

func TestInitializeTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)

		_, _ = w.Write([]byte(`{
			"status": true,
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "inv_42_1700000000000"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL)
	result, err := client.InitializeTransaction(context.Background(), "sk_test_abc", InitializePayload{
		Email:       "ada@example.com",
		AmountMinor: 46750,
		Currency:    "NGN",
		Reference:   "inv_42_1700000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	assert.Equal(t, "inv_42_1700000000000", result.Reference)
}

func TestParseChargeSuccess(t *testing.T) {
	charge, err := ParseChargeSuccess([]byte(`{
		"reference": "r1",
		"status": "success",
		"amount": 46750,
		"currency": "ngn",
		"channel": "bank_transfer"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", charge.Reference)
	assert.Equal(t, "NGN", charge.Currency)
	assert.True(t, charge.Successful())
}
