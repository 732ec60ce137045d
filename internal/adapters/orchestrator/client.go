// Package orchestrator notifies the agent orchestrator about account state
// changes the engine makes on its own, such as auto-resumes.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config captures how to reach the orchestrator's webhook.
type Config struct {
	WebhookURL string
	AuthToken  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client delivers resume notifications to the orchestrator webhook.
type Client struct {
	webhookURL string
	authToken  string
	retryLimit int
	client     *http.Client
}

// NewClient builds an orchestrator webhook client. Callers should pass a
// validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("orchestrator webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL: webhookURL,
		authToken:  strings.TrimSpace(cfg.AuthToken),
		retryLimit: retries,
		client:     hc,
	}, nil
}

// NotifyResumed tells the orchestrator an account came back from auto-pause.
func (c *Client) NotifyResumed(ctx context.Context, userID string) error {
	body, err := json.Marshal(map[string]string{
		"event":   "account_resumed",
		"user_id": userID,
	})
	if err != nil {
		return fmt.Errorf("encode resume notification: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create orchestrator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("orchestrator request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("orchestrator returned status %d", resp.StatusCode)
	}
	return nil
}
