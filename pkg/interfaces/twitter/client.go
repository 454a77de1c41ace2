package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const retryBackoff = 200 * time.Millisecond

// ClientOption allows for customization of the client
type ClientOption func(*TwitterClient)

// WithHTTPClient replaces the authenticated HTTP client, mostly for tests.
// In user mode the replacement does not sign requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *TwitterClient) {
		c.auth.client = httpClient
	}
}

type TwitterClient struct {
	config  *TwitterConfig
	auth    *Authenticator
	logger  *logrus.Logger
	limiter *rate.Limiter
}

// NewTwitterClient creates a new Twitter API client
func NewTwitterClient(config *TwitterConfig, opts ...ClientOption) (*TwitterClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	auth, err := NewAuthenticator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	// Spread the window's request budget evenly, burst of 1
	window := time.Duration(config.RateWindow) * time.Minute
	every := rate.Every(window / time.Duration(config.RateLimit))

	client := &TwitterClient{
		config:  config,
		auth:    auth,
		logger:  config.Logger,
		limiter: rate.NewLimiter(every, 1),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// handleResponse checks for API errors in the response
func (c *TwitterClient) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp struct {
		Errors []TwitterError `json:"errors"`
		Title  string         `json:"title"`
		Detail string         `json:"detail"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("twitter api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	if len(errResp.Errors) > 0 {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"error_code":  errResp.Errors[0].Code,
			"message":     errResp.Errors[0].Message,
		}).Error("Twitter API error")
		return &errResp.Errors[0]
	}

	if errResp.Detail != "" {
		return &TwitterError{Code: resp.StatusCode, Message: errResp.Detail}
	}

	return fmt.Errorf("twitter api error: status=%d", resp.StatusCode)
}

func (c *TwitterClient) makeRequest(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.config.BaseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"method":    method,
		"url":       fullURL,
		"auth_mode": c.auth.Mode(),
	}).Debug("Sending Twitter API request")

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// doWithRetry repeats a request on transport errors and 5xx responses, up to
// RetryAttempts extra tries. Other statuses are returned to the caller as is.
func (c *TwitterClient) doWithRetry(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, error) {
	backoff := retryBackoff
	for attempt := 0; ; attempt++ {
		resp, err := c.makeRequest(ctx, method, endpoint, query)
		retryable := err != nil || resp.StatusCode >= http.StatusInternalServerError
		if !retryable || attempt >= c.config.RetryAttempts || ctx.Err() != nil {
			return resp, err
		}

		log := c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
		})
		if err != nil {
			log = log.WithError(err)
		} else {
			log = log.WithField("status_code", resp.StatusCode)
			resp.Body.Close()
		}
		log.Warn("Retrying Twitter API request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
