package roles

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Constitosh/verifyDN/internal/profile"
)

const (
	SignatureHeader = "X-Signature-256"
	maxResponseBody = 1 << 20
)

// WebhookAssigner hands the profile to an external bot over HTTP.
type WebhookAssigner struct {
	url        string
	secret     []byte
	httpClient *http.Client
}

func NewWebhookAssigner(url, secret string, httpClient *http.Client) *WebhookAssigner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebhookAssigner{
		url:        url,
		secret:     []byte(secret),
		httpClient: httpClient,
	}
}

func (w *WebhookAssigner) Assign(ctx context.Context, p profile.Profile) (Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Result{}, fmt.Errorf("marshal profile: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(w.secret, body))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, truncate(payload, 200))
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return Result{}, nil
	}
	if !json.Valid(payload) {
		quoted, _ := json.Marshal(string(payload))
		return Result{Payload: quoted}, nil
	}
	return Result{Payload: payload}, nil
}

// Sign returns the "sha256=<hex>" HMAC of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
