// Package telegram is a small Telegram Bot API client. It implements
// chat.Gateway for the raid engine and long-polls updates for the bot.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ClientOption allows for customization of the client
type ClientOption func(*TelegramClient)

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *TelegramClient) {
		c.http = httpClient
	}
}

type TelegramClient struct {
	config  *TelegramConfig
	http    *http.Client
	logger  *logrus.Logger
	limiter *rate.Limiter
}

// NewTelegramClient creates a new Bot API client
func NewTelegramClient(config *TelegramConfig, opts ...ClientOption) (*TelegramClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := &TelegramClient{
		config: config,
		// Long polls hold the connection for PollTimeout
		http:    &http.Client{Timeout: config.PollTimeout + 15*time.Second},
		logger:  config.Logger,
		limiter: rate.NewLimiter(rate.Limit(config.SendRate), config.SendBurst),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// callMethod posts payload as JSON to a Bot API method and decodes the result
// into result when it is non-nil.
func (c *TelegramClient) callMethod(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithField("method", method).Trace("Sending Telegram API request")

	resp, err := c.http.Do(req)
	if err != nil {
		// The token is part of the URL; keep it out of logs and errors
		return fmt.Errorf("telegram %s request failed: %w", method, redact(err, c.config.Token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("telegram %s: status=%d undecodable body: %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// GetMe returns the bot's own user.
func (c *TelegramClient) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.callMethod(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}
