// Package payment wraps the external payment gateway behind a narrow
// capability interface so the order core never sees HTTP details.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"foodDeliveryManagement/internal/config"
)

// InitResult is the gateway's payment-initiation handle returned to the
// customer after order creation.
type InitResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// VerifyResult is the gateway's verdict on a payment reference.
type VerifyResult struct {
	Status    string    `json:"status"` // "success" or a gateway failure code
	Reference string    `json:"reference"`
	Amount    float64   `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

// Succeeded reports whether the gateway confirmed the payment.
func (v *VerifyResult) Succeeded() bool {
	return v != nil && v.Status == "success"
}

// Gateway accepts an amount and returns success/failure plus a reference.
type Gateway interface {
	Initialize(ctx context.Context, email string, amount float64) (*InitResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Client is a Paystack-style HTTP implementation of Gateway. All calls are
// bounded by the configured timeout.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.PaymentConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		secret:  cfg.SecretKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type initRequest struct {
	Email  string `json:"email"`
	Amount int64  `json:"amount"` // subunits
}

type initResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
	Message string `json:"message"`
}

// Initialize starts a payment for the given amount and returns the redirect
// handle the customer completes payment with.
func (c *Client) Initialize(ctx context.Context, email string, amount float64) (*InitResult, error) {
	body, err := json.Marshal(initRequest{Email: email, Amount: int64(amount * 100)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment initialize: %w", err)
	}
	defer resp.Body.Close()

	var out initResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payment initialize: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("payment initialize rejected: %s", out.Message)
	}
	c.logger.Info("payment initialized", zap.String("reference", out.Data.Reference))
	return &InitResult{Reference: out.Data.Reference, AuthorizationURL: out.Data.AuthorizationURL}, nil
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status    string    `json:"status"`
		Reference string    `json:"reference"`
		Amount    int64     `json:"amount"`
		PaidAt    time.Time `json:"paid_at"`
	} `json:"data"`
	Message string `json:"message"`
}

// Verify asks the gateway whether the referenced payment succeeded.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment verify: %w", err)
	}
	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payment verify: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("payment verify rejected: %s", out.Message)
	}
	return &VerifyResult{
		Status:    out.Data.Status,
		Reference: out.Data.Reference,
		Amount:    float64(out.Data.Amount) / 100,
		PaidAt:    out.Data.PaidAt,
	}, nil
}
