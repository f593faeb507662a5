// Package paypal is a minimal client for the PayPal Orders v2 API, covering
// order creation and capture for solcito purchases.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// StatusCompleted is the capture status that releases the purchased credits.
const StatusCompleted = "COMPLETED"

// Client talks to the PayPal REST API. Access tokens are cached until shortly
// before their expiry, so concurrent callers share one token.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient returns a Client for the PayPal API at baseURL
// (sandbox or live).
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Order is the subset of the order object the platform uses.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// Link is a HATEOAS link on an order.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// ApprovalURL returns the buyer approval link of the order, if present.
func (o *Order) ApprovalURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

// CaptureResult is the outcome of capturing an approved order.
type CaptureResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// CustomID is the value the platform attached at order creation.
	CustomID string
}

// GetAccessToken returns a valid OAuth access token, exchanging the client
// credentials only when the cached token is missing or about to expire.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	// Refresh a minute early so in-flight requests never carry a token that
	// expires mid-call. Very short-lived tokens are not cached at all.
	if out.ExpiresIn > 60 {
		c.token = out.AccessToken
		c.tokenExp = time.Now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	}
	return out.AccessToken, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("paypal returned %d: %s", resp.StatusCode, string(raw))
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateOrder creates an order for the given USD amount. customID is carried
// through to the capture webhook/redirect untouched; the platform packs the
// purchase context into it. returnURL and cancelURL are where the buyer lands
// after approving or abandoning the payment.
func (c *Client) CreateOrder(ctx context.Context, amountUSD float64, description, customID, returnURL, cancelURL string) (*Order, error) {
	reqBody := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         fmt.Sprintf("%.2f", amountUSD),
				},
				"description": description,
				"custom_id":   customID,
			},
		},
		"application_context": map[string]string{
			"return_url":  returnURL,
			"cancel_url":  cancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var order Order
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", reqBody, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved order. The returned status must equal
// StatusCompleted before any credits are released.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	var resp struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID       string `json:"id"`
					Status   string `json:"status"`
					CustomID string `json:"custom_id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}

	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &resp); err != nil {
		return nil, err
	}

	result := &CaptureResult{ID: resp.ID, Status: resp.Status}
	for _, pu := range resp.PurchaseUnits {
		for _, cap := range pu.Payments.Captures {
			if cap.CustomID != "" {
				result.CustomID = cap.CustomID
			}
		}
	}
	return result, nil
}
