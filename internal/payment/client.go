package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pledgekit-backend/internal/logger"
)

// Client talks to the payment processor's checkout API. The processor
// owns the payment lifecycle; this side only opens sessions and consumes
// the signed webhook feed.
type Client interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

type CheckoutParams struct {
	AmountCents   int64
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	// Metadata is carried opaquely through the processor and echoed back
	// on webhook events.
	Metadata map[string]string
}

type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
}

type httpClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewClient(baseURL, secretKey string) Client {
	return &httpClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type sessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *httpClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("customer_email", params.CustomerEmail)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	endpoint := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// One key per attempt. Callers open a fresh session on retry, so
	// this only lets the processor dedupe a duplicated HTTP request,
	// not a replayed create.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	logger.ExternalServiceCall("stripe", "CreateCheckoutSession", "amount_cents", params.AmountCents)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.ExternalServiceResult("stripe", "CreateCheckoutSession", err)
		return nil, fmt.Errorf("checkout session request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sr sessionResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode checkout session response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := "unknown error"
		if sr.Error != nil {
			msg = sr.Error.Message
		}
		err := fmt.Errorf("payment processor error (status %d): %s", resp.StatusCode, msg)
		logger.ExternalServiceResult("stripe", "CreateCheckoutSession", err)
		return nil, err
	}
	logger.ExternalServiceResult("stripe", "CreateCheckoutSession", nil, "session_id", sr.ID)

	return &CheckoutSession{
		ID:              sr.ID,
		URL:             sr.URL,
		PaymentIntentID: sr.PaymentIntent,
	}, nil
}
