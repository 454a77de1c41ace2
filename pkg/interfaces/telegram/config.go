package telegram

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.telegram.org"

type TelegramConfig struct {
	Token   string
	BaseURL string

	// Long polling
	PollTimeout time.Duration

	// Outgoing calls per second across all chats, with burst
	SendRate  float64
	SendBurst int

	Logger *logrus.Logger
}

func NewTelegramConfig() (*TelegramConfig, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	pollSeconds, err := strconv.Atoi(getEnvOrDefault("TELEGRAM_POLL_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_POLL_TIMEOUT_SECONDS: %w", err)
	}

	// Bot API allows roughly 30 messages per second overall
	sendRate, err := strconv.ParseFloat(getEnvOrDefault("TELEGRAM_SEND_RATE", "25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_SEND_RATE: %w", err)
	}

	config := &TelegramConfig{
		Token:       os.Getenv("TELEGRAM_TOKEN"),
		BaseURL:     getEnvOrDefault("TELEGRAM_API_BASE_URL", DefaultBaseURL),
		PollTimeout: time.Duration(pollSeconds) * time.Second,
		SendRate:    sendRate,
		SendBurst:   5,
		Logger: func() *logrus.Logger {
			log := logrus.New()
			if level := os.Getenv("LOG_LEVEL"); level != "" {
				if parsedLevel, err := logrus.ParseLevel(level); err == nil {
					log.SetLevel(parsedLevel)
				}
			}
			return log
		}(),
	}

	config.Logger.WithFields(logrus.Fields{
		"token_exists": config.Token != "",
		"base_url":     config.BaseURL,
		"poll_timeout": config.PollTimeout,
	}).Debug("Telegram config initialized")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *TelegramConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("poll timeout cannot be negative")
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("send rate must be positive")
	}
	if c.SendBurst < 1 {
		c.SendBurst = 1
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
