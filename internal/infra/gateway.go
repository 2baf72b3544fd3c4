package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// confirmRequest is sent to the payment gateway sidecar. The sidecar holds
// the acquirer credentials; this backend only asks whether a charge the
// frontend initiated actually settled.
type confirmRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type confirmResponse struct {
	Status string `json:"status"` // "confirmed" | "rejected" | "unknown"
	Detail string `json:"detail"`
}

// GatewayClient is an HTTP client for the payment gateway sidecar.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ConfirmCharge verifies that the referenced card charge settled for the
// given amount. A non-confirmed status is an error: the caller must not
// record the payment.
func (c *GatewayClient) ConfirmCharge(ctx context.Context, reference string, amount decimal.Decimal, currency string) error {
	body, err := json.Marshal(confirmRequest{
		Reference: reference,
		Amount:    amount.StringFixed(2),
		Currency:  currency,
	})
	if err != nil {
		return fmt.Errorf("gateway: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges/confirm", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: returned %d", resp.StatusCode)
	}

	var result confirmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	if result.Status != "confirmed" {
		return fmt.Errorf("gateway: charge %s not confirmed (status=%s detail=%s)", reference, result.Status, result.Detail)
	}
	return nil
}
