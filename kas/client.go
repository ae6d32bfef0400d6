// kas/client.go
package kas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ReleaseRequest is the payload posted to a KAS endpoint.
type ReleaseRequest struct {
	ResourceID  string `json:"resourceId"`
	KAOID       string `json:"kaoId"`
	BearerToken string `json:"bearerToken"`
}

// ReleaseResponse is a KAS's answer to a key-release request. A transport
// failure and an explicit denial are both failures for fallback purposes
// but are distinguished in the audit trace.
type ReleaseResponse struct {
	Success          bool   `json:"success"`
	Key              string `json:"key,omitempty"`
	DecryptedContent string `json:"decryptedContent,omitempty"`
	KASID            string `json:"kasId"`
	Error            string `json:"error,omitempty"`
	DenialReason     string `json:"denialReason,omitempty"`
}

// Client issues key-release calls to live KAS endpoints.
type Client interface {
	Release(ctx context.Context, kasURL string, request ReleaseRequest) (*ReleaseResponse, error)
}

// HTTPKASClient is the production Client: one POST per release attempt,
// bounded by a per-call timeout.
type HTTPKASClient struct {
	httpClient *http.Client
}

func NewHTTPKASClient(callTimeout time.Duration) *HTTPKASClient {
	return &HTTPKASClient{
		httpClient: &http.Client{
			Timeout: callTimeout,
		},
	}
}

func (c *HTTPKASClient) Release(ctx context.Context, kasURL string, request ReleaseRequest) (*ReleaseResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key release request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, kasURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build key release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var release ReleaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("malformed KAS response: %w", err)
	}
	return &release, nil
}
