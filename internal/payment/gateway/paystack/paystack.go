// Package paystack is the HTTP client for the Paystack REST API plus
// webhook signature verification. This is the only place minor-unit
// amounts cross into the system.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"gorm.io/datatypes"
)

const (
	defaultBaseURL = "https://api.paystack.co"

	// SignatureHeader carries the HMAC-SHA512 hex digest of the raw
	// webhook body.
	SignatureHeader = "x-paystack-signature"
)

var (
	ErrSecretKeyMissing = errors.New("paystack_secret_key_missing")
	ErrGatewayFailure   = errors.New("paystack_gateway_failure")
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is for tests against a local stub server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type InitializePayload struct {
	Email       string         `json:"email"`
	AmountMinor int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Channels    []string       `json:"channels,omitempty"`
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transactionData struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Channel         string `json:"channel"`
	Fees            int64  `json:"fees"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
	Customer        struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// InitializeTransaction starts a hosted checkout for the given amount in
// minor units and returns the redirect URL.
func (c *Client) InitializeTransaction(ctx context.Context, secretKey string, payload InitializePayload) (*InitializeResult, error) {
	body, err := c.request(ctx, secretKey, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	return &result, nil
}

// VerifyTransaction asks Paystack for the authoritative state of a
// charge. The result is the only trusted source for amount and status.
func (c *Client) VerifyTransaction(ctx context.Context, secretKey, reference string) (*paymentdomain.VerifiedCharge, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, paymentdomain.ErrMissingReference
	}

	body, err := c.request(ctx, secretKey, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var data transactionData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	var raw datatypes.JSONMap
	_ = json.Unmarshal(body, &raw)

	charge := &paymentdomain.VerifiedCharge{
		Reference:       data.Reference,
		Status:          strings.ToLower(strings.TrimSpace(data.Status)),
		AmountMinor:     data.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(data.Currency)),
		Channel:         data.Channel,
		FeesMinor:       data.Fees,
		GatewayResponse: data.GatewayResponse,
		CustomerEmail:   data.Customer.Email,
		Raw:             raw,
	}
	if data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			utc := paidAt.UTC()
			charge.PaidAt = &utc
		}
	}
	return charge, nil
}

func (c *Client) request(ctx context.Context, secretKey, method, path string, payload any) (json.RawMessage, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, ErrSecretKeyMissing
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayFailure, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayFailure, message)
	}
	return envelope.Data, nil
}

// VerifySignature checks the webhook HMAC-SHA512 hex signature over the
// raw request body.
func VerifySignature(rawBody []byte, signature, secretKey string) bool {
	signature = strings.TrimSpace(signature)
	if secretKey == "" || len(rawBody) == 0 || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secretKey))
	_, _ = mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// WebhookEvent is the envelope Paystack posts to the webhook endpoint.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseWebhookEvent decodes a webhook delivery envelope.
func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ParseChargeSuccess extracts the verified charge from a charge.success
// webhook body. Signature verification must happen first.
func ParseChargeSuccess(data json.RawMessage) (*paymentdomain.VerifiedCharge, error) {
	var parsed transactionData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	var raw datatypes.JSONMap
	_ = json.Unmarshal(data, &raw)

	charge := &paymentdomain.VerifiedCharge{
		Reference:       strings.TrimSpace(parsed.Reference),
		Status:          strings.ToLower(strings.TrimSpace(parsed.Status)),
		AmountMinor:     parsed.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(parsed.Currency)),
		Channel:         parsed.Channel,
		FeesMinor:       parsed.Fees,
		GatewayResponse: parsed.GatewayResponse,
		CustomerEmail:   parsed.Customer.Email,
		Raw:             raw,
	}
	if parsed.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, parsed.PaidAt); err == nil {
			utc := paidAt.UTC()
			charge.PaidAt = &utc
		}
	}
	return charge, nil
}
