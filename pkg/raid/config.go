package raid

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lisanmuaddib/raider-go/pkg/dashboard"
)

const (
	// DefaultDuration is how long a raid runs before it expires.
	DefaultDuration = 30 * time.Minute
	// DefaultUpdateInterval is the pause between dashboard refreshes.
	DefaultUpdateInterval = 20 * time.Second

	// MinUpdateInterval keeps the loop from flooding the chat API.
	MinUpdateInterval = 1 * time.Second
	// MaxUpdateInterval keeps the dashboard responsive.
	MaxUpdateInterval = 5 * time.Minute
)

// Config holds the raid timing and presentation settings.
type Config struct {
	Duration       time.Duration
	UpdateInterval time.Duration
	MockMode       bool
	BotName        string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Duration:       DefaultDuration,
		UpdateInterval: DefaultUpdateInterval,
		MockMode:       true,
		BotName:        dashboard.DefaultBotName,
	}
}

// NewConfig reads RAID_* variables from the environment, loading .env first
// when present.
func NewConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := DefaultConfig()

	if v := os.Getenv("RAID_DURATION_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RAID_DURATION_MINUTES %q: %w", v, err)
		}
		cfg.Duration = time.Duration(minutes) * time.Minute
	}
	if v := os.Getenv("RAID_UPDATE_INTERVAL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RAID_UPDATE_INTERVAL_SECONDS %q: %w", v, err)
		}
		cfg.UpdateInterval = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("RAID_MOCK_MODE"); v != "" {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RAID_MOCK_MODE %q: %w", v, err)
		}
		cfg.MockMode = mock
	}
	if v := os.Getenv("RAID_BOT_NAME"); v != "" {
		cfg.BotName = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the duration and interval bounds.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("raid duration must be positive, got %v", c.Duration)
	}
	if c.UpdateInterval < MinUpdateInterval || c.UpdateInterval > MaxUpdateInterval {
		return fmt.Errorf("update interval must be between %v and %v", MinUpdateInterval, MaxUpdateInterval)
	}
	return nil
}
