package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

const (
	webhookTimeout      = 10 * time.Second
	webhookMaxRespBytes = 1 << 20
)

// webhookClient is shared by all webhook-bound capability handlers.
var webhookClient = &http.Client{Timeout: webhookTimeout}

// webhookPayload is the body POSTed to a capability's callback URL.
type webhookPayload struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// webhookHandler binds a capability declared over HTTP to its callback URL.
// Invocation POSTs the parameters to the URL and relays the response body.
// An empty URL yields a nil handler, which the bridge reports as an
// unbound capability.
func webhookHandler(callbackURL, action string) models.Handler {
	if callbackURL == "" {
		return nil
	}
	return func(ctx context.Context, params map[string]any) (any, error) {
		body, err := json.Marshal(webhookPayload{Action: action, Parameters: params})
		if err != nil {
			return nil, fmt.Errorf("encoding webhook payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := webhookClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling webhook: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, webhookMaxRespBytes))
		if err != nil {
			return nil, fmt.Errorf("reading webhook response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
		}

		// Relay structured output when the webhook returns JSON.
		var decoded any
		if json.Unmarshal(respBody, &decoded) == nil {
			return decoded, nil
		}
		return string(respBody), nil
	}
}
