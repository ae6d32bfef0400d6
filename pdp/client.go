// pdp/client.go

// Package pdp is the request/response boundary to the external policy
// decision point. The rule language the PDP evaluates is opaque here; this
// package only builds the payload and interprets the verdict.
package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
)

// Client evaluates a decision request against the external PDP.
type Client interface {
	Decide(ctx context.Context, request DecisionRequest) (*DecisionResponse, error)
}

// HTTPClient talks to a PDP over HTTP. An unreachable PDP surfaces as
// ErrPolicyServiceUnavailable so callers can fail closed.
type HTTPClient struct {
	url        string
	httpClient *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Decide(ctx context.Context, request DecisionRequest) (*DecisionResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("PDP unreachable",
			zap.Error(err),
			zap.String("url", c.url),
			zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", dive_errors.ErrPolicyServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("PDP returned unexpected status",
			zap.Int("status", resp.StatusCode),
			zap.String("url", c.url))
		return nil, fmt.Errorf("%w: status %d", dive_errors.ErrPolicyServiceUnavailable, resp.StatusCode)
	}

	var decision DecisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", dive_errors.ErrPolicyServiceUnavailable, err)
	}

	logger.Debug("PDP decision received",
		zap.Bool("allow", decision.Allow),
		zap.Duration("latency", time.Since(start)))
	return &decision, nil
}
