package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const apiVersion = "2023-08-01"

// Cashfree order states we act on.
const (
	OrderStatusActive     = "ACTIVE"
	OrderStatusPaid       = "PAID"
	OrderStatusExpired    = "EXPIRED"
	OrderStatusTerminated = "TERMINATED"
)

// GatewayError is returned when Cashfree answers with a non-2xx status.
// Transport failures (timeouts, DNS, connection refused) surface as plain
// errors instead, so callers can tell a refusal from an outage.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("cashfree: status %d: %s", e.StatusCode, e.Body)
}

// CashfreeClient talks to the Cashfree payment gateway REST API.
type CashfreeClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

// NewCashfreeClient builds a client for the given environment.
// env is "TEST" (sandbox) or "PROD".
func NewCashfreeClient(env, clientID, clientSecret string) *CashfreeClient {
	base := "https://sandbox.cashfree.com/pg"
	if env == "PROD" {
		base = "https://api.cashfree.com/pg"
	}
	return &CashfreeClient{
		baseURL:      base,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

type CreateOrderRequest struct {
	OrderID       string
	AmountPaise   int64
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	ReturnURL     string
}

type Order struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateOrder registers a payment order with Cashfree. Amounts are carried
// internally in paise; Cashfree expects rupees with two decimal places.
func (c *CashfreeClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	amount := decimal.NewFromInt(req.AmountPaise).Div(decimal.NewFromInt(100))
	payload := map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   amount,
		"order_currency": "INR",
		"customer_details": map[string]any{
			"customer_id":    req.CustomerID,
			"customer_email": req.CustomerEmail,
			"customer_name":  req.CustomerName,
			"customer_phone": "9999999999",
		},
		"order_meta": map[string]any{
			"return_url": req.ReturnURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches the current state of an order, used by webhook
// verification and the reconciliation worker.
func (c *CashfreeClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *CashfreeClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cashfree request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
