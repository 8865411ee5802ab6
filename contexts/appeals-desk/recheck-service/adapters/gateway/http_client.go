package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"rostrum/contexts/appeals-desk/recheck-service/ports"
)

const defaultRequestTimeout = 10 * time.Second

// Client is the HTTP adapter for the external payment provider. Calls are
// rate-limited and bounded by the configured timeout; proofs are checked
// against the shared secret before the provider is asked at all.
type Client struct {
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	WebhookSecret  string
	RequestTimeout time.Duration
	RequestsPerSec float64
	Logger         *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		secret:  cfg.WebhookSecret,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:  logger,
	}
}

type createOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type createOrderResponse struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (c *Client) CreateOrder(ctx context.Context, amount float64, currency string) (ports.Order, error) {
	var resp createOrderResponse
	if err := c.post(ctx, "/v1/orders", createOrderRequest{
		Amount:   amount,
		Currency: currency,
	}, &resp); err != nil {
		return ports.Order{}, err
	}
	if strings.TrimSpace(resp.OrderID) == "" {
		return ports.Order{}, fmt.Errorf("payment provider returned empty order id")
	}
	return ports.Order{OrderID: resp.OrderID, Amount: resp.Amount, Currency: resp.Currency}, nil
}

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type verifyPaymentResponse struct {
	Status string `json:"status"`
}

// VerifyPayment checks the caller's proof against the shared secret, then
// confirms the payment's status with the provider. A bad proof is a verdict,
// not a gateway failure.
func (c *Client) VerifyPayment(ctx context.Context, orderID, paymentID, proof string) (bool, error) {
	if !c.proofValid(orderID, paymentID, proof) {
		c.logger.Warn("payment proof signature mismatch",
			"event", "recheck_gateway_proof_mismatch",
			"module", "appeals-desk/recheck-service",
			"layer", "adapter",
			"order_id", orderID,
			"payment_id", paymentID,
		)
		return false, nil
	}
	var resp verifyPaymentResponse
	if err := c.post(ctx, "/v1/payments/verify", verifyPaymentRequest{
		OrderID:   orderID,
		PaymentID: paymentID,
	}, &resp); err != nil {
		return false, err
	}
	return strings.EqualFold(resp.Status, "paid"), nil
}

func (c *Client) proofValid(orderID, paymentID, proof string) bool {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(proof)))
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment provider %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
