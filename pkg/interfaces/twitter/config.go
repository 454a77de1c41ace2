package twitter

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.twitter.com/2"

	defaultRequestTimeout = 30 * time.Second
)

// TwitterConfig configures the read-only lookup client behind live raid
// metrics.
type TwitterConfig struct {
	// Credentials: OAuth 1.0a user context, or an app-only bearer token
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string

	BaseURL       string
	TweetEndpoint string

	// RateLimit requests per RateWindow minutes
	RateLimit      int
	RateWindow     int
	RetryAttempts  int
	RequestTimeout time.Duration

	// Tweet fields requested on lookups (Twitter v2 data dictionary)
	DefaultFields []string
	MetricFields  []string

	Logger *logrus.Logger
}

// NewTwitterConfig reads TWITTER_* variables, loading .env first when present.
func NewTwitterConfig() (*TwitterConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Tweet lookup allows 300 requests per 15 minutes for app auth
	rateLimit, err := envInt("TWITTER_RATE_LIMIT", 300)
	if err != nil {
		return nil, err
	}
	rateWindow, err := envInt("TWITTER_RATE_WINDOW", 15)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := envInt("TWITTER_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := envInt("TWITTER_TIMEOUT_SECONDS", int(defaultRequestTimeout/time.Second))
	if err != nil {
		return nil, err
	}

	config := &TwitterConfig{
		ConsumerKey:       os.Getenv("TWITTER_CONSUMER_KEY"),
		ConsumerSecret:    os.Getenv("TWITTER_CONSUMER_SECRET"),
		AccessToken:       os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessTokenSecret: os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"),
		BearerToken:       os.Getenv("TWITTER_BEARER_TOKEN"),

		BaseURL:       getEnvOrDefault("TWITTER_API_BASE_URL", DefaultBaseURL),
		TweetEndpoint: "/tweets",

		RateLimit:      rateLimit,
		RateWindow:     rateWindow,
		RetryAttempts:  retryAttempts,
		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,

		DefaultFields: []string{"id", "text", "created_at", "author_id"},
		MetricFields:  []string{"public_metrics"},

		Logger: logrus.StandardLogger(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Logger.WithFields(logrus.Fields{
		"auth_mode":  config.authMode(),
		"base_url":   config.BaseURL,
		"rate_limit": fmt.Sprintf("%d/%dm", config.RateLimit, config.RateWindow),
	}).Debug("Twitter config initialized")

	return config, nil
}

// Validate checks credentials and limits and fills in endpoint defaults.
func (c *TwitterConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if !c.HasReadAccess() {
		return fmt.Errorf("either OAuth 1.0a credentials or Bearer token must be provided")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RateWindow < 1 {
		return fmt.Errorf("rate window must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TweetEndpoint == "" {
		c.TweetEndpoint = "/tweets"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *TwitterConfig) authMode() AuthMode {
	if c.HasUserAuth() {
		return AuthModeUser
	}
	return AuthModeApp
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

// GetTweetFields returns the default and metric tweet fields plus any additional fields
func (c *TwitterConfig) GetTweetFields(additionalFields ...string) []string {
	fields := append([]string{}, c.DefaultFields...)
	fields = append(fields, c.MetricFields...)
	fields = append(fields, additionalFields...)
	return fields
}

// HasUserAuth returns true if OAuth 1.0a credentials are configured
func (c *TwitterConfig) HasUserAuth() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" &&
		c.AccessToken != "" && c.AccessTokenSecret != ""
}

// HasReadAccess returns true if either OAuth 1.0a or Bearer token is configured
func (c *TwitterConfig) HasReadAccess() bool {
	return c.HasUserAuth() || c.BearerToken != ""
}
