package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rookgm/orderflow/internal/models"
)

// default time of retry after
const delaySeconds = 60

const defaultTimeout = 5 * time.Second

// Client fetches payment state from the payment provider API
type Client struct {
	client      *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates new Client instance. Non-positive timeout means the default one.
func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	PaymentMethodID   string      `json:"payment_method_id"`
}

// FetchPayment returns provider-side state of the payment
// 200 - payment found.
// 404 - payment unknown to the provider, not retryable.
// 429 - throttled, retryable after Retry-After.
// 5xx and transport errors are retryable.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*models.ProviderPayment, error) {
	// GET /v1/payments/{id}
	u, err := url.JoinPath(c.baseURL, "v1", "payments", paymentID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, models.NewRetryableError(fmt.Errorf("fetch payment %s: %w", paymentID, err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		pr := paymentResponse{}
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(&pr); err != nil {
			return nil, models.NewRetryableError(fmt.Errorf("decode payment %s: %w", paymentID, err))
		}
		status := models.ProviderStatus(pr.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("payment %s: %w %q", paymentID, models.ErrUnknownStatus, pr.Status)
		}
		return &models.ProviderPayment{
			ID:                pr.ID.String(),
			Status:            status,
			StatusDetail:      pr.StatusDetail,
			ExternalReference: pr.ExternalReference,
			Amount:            pr.TransactionAmount,
			Currency:          pr.CurrencyID,
			PaymentMethod:     pr.PaymentMethodID,
		}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.ErrPaymentNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		t, err := strconv.Atoi(resp.Header.Get("Retry-After"))
		if err != nil || t <= 0 {
			t = delaySeconds
		}
		return nil, models.NewTooManyRequestsError(time.Duration(t) * time.Second)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, models.NewRetryableError(fmt.Errorf("fetch payment %s: provider status %d", paymentID, resp.StatusCode))
	default:
		return nil, errors.New("fetch payment " + paymentID + ": unexpected status " + resp.Status)
	}
}
