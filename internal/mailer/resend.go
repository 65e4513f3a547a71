// Package mailer wraps the Resend transactional-email API behind a single
// Send call. It does not retry; retry policy belongs to the caller.
package mailer

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

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.resend.com"

// ProviderError is any non-success answer from the provider, with a
// best-effort machine code and human message pulled from the response body.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("resend: %s (%s)", e.Message, e.Code)
}

// Sender is what the orchestrator and the subscribe flow depend on.
type Sender interface {
	Send(ctx context.Context, to, subject, html string, headers map[string]string) (string, error)
}

type Client struct {
	BaseURL    string
	APIKey     string
	From       string
	HTTPClient *http.Client
}

func NewClient(apiKey, from string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		From:       from,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Send issues one outbound email and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, subject, html string, headers map[string]string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", errors.New("at least one recipient is required")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("email subject is required")
	}
	if strings.TrimSpace(html) == "" {
		return "", errors.New("email html content is required")
	}
	if c.APIKey == "" {
		return "", errors.New("RESEND_API_KEY is not configured")
	}
	if c.From == "" {
		return "", errors.New("NEWSLETTER_FROM_EMAIL is not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.From,
		To:      []string{to},
		Subject: strings.TrimSpace(subject),
		HTML:    html,
		Headers: headers,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", buildProviderError(resp.StatusCode, respBody)
	}

	return gjson.GetBytes(respBody, "id").String(), nil
}

// buildProviderError extracts code/message from whichever error shape the
// provider produced, else synthesizes them from the HTTP status.
func buildProviderError(status int, body []byte) *ProviderError {
	code := firstString(body, "error.name", "error.type", "name")
	if code == "" {
		code = fmt.Sprintf("http_%d", status)
	}

	message := firstString(body, "message", "error.message", "error")
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = fmt.Sprintf("resend API request failed with status %d", status)
	}

	return &ProviderError{Status: status, Code: code, Message: message}
}

func firstString(body []byte, paths ...string) string {
	for _, path := range paths {
		if result := gjson.GetBytes(body, path); result.Exists() && result.Type == gjson.String {
			if value := strings.TrimSpace(result.String()); value != "" {
				return value
			}
		}
	}
	return ""
}
