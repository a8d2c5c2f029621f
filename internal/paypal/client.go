package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"
	liveAPIBase    = "https://api-m.paypal.com"
)

// Config carries processor credentials and environment selection.
type Config struct {
	ClientID     string
	ClientSecret string
	Mode         string // "sandbox" or "live"
	BaseURL      string // optional override, used by tests
}

// Client talks to the processor's REST API. Every authorized call takes an
// access token minted by GetAccessToken; the client keeps no token state.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Mode == "live" {
			base = liveAPIBase
		} else {
			base = sandboxAPIBase
		}
	}
	return &Client{
		baseURL:      base,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// GetAccessToken performs a client-credentials exchange over Basic auth.
// Exactly one outbound call per invocation; no caching, no retry.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", &TokenError{Status: resp.StatusCode, Code: body.Error, Description: body.ErrorDescription}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return body.AccessToken, nil
}

// CreateOrder registers an order with the processor.
func (c *Client) CreateOrder(ctx context.Context, token string, order OrderRequest) (*Order, error) {
	var out Order
	if err := c.postJSON(ctx, token, "/v2/checkout/orders", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder finalizes a buyer-approved order.
func (c *Client) CaptureOrder(ctx context.Context, token, orderID string) (*CaptureResponse, error) {
	var out CaptureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.postJSON(ctx, token, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyWebhookSignature asks the processor whether a webhook delivery is
// authentic. True only on an explicit SUCCESS verification status.
func (c *Client) VerifyWebhookSignature(ctx context.Context, token, webhookID string, hdr SignatureHeaders, rawEvent []byte) (bool, error) {
	payload := map[string]any{
		"auth_algo":         hdr.AuthAlgo,
		"cert_url":          hdr.CertURL,
		"transmission_id":   hdr.TransmissionID,
		"transmission_sig":  hdr.TransmissionSig,
		"transmission_time": hdr.TransmissionTime,
		"webhook_id":        webhookID,
		"webhook_event":     json.RawMessage(rawEvent),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.postJSON(ctx, token, "/v1/notifications/verify-webhook-signature", payload, &out); err != nil {
		return false, err
	}
	return out.VerificationStatus == "SUCCESS", nil
}

func (c *Client) postJSON(ctx context.Context, token, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejectedFrom(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func rejectedFrom(resp *http.Response) error {
	var body struct {
		Name    string       `json:"name"`
		Message string       `json:"message"`
		DebugID string       `json:"debug_id"`
		Details []FieldIssue `json:"details"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &RejectedError{
		Status:  resp.StatusCode,
		Code:    body.Name,
		Message: body.Message,
		DebugID: body.DebugID,
		Details: body.Details,
	}
}

// MaskCredential shortens a secret for safe logging.
func MaskCredential(s string) string {
	if s == "" {
		return "NOT SET"
	}
	if len(s) < 16 {
		return "***"
	}
	return s[:8] + "..." + s[len(s)-4:]
}
