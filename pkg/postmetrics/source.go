// Package postmetrics reads engagement counters for social posts. A Source
// resolves a post identifier from its URL, checks that the post is reachable and
// polls its current likes, comments and reposts.
//
// Two implementations exist: SimulatedSource, which grows counters on its own for
// environments without API credentials, and LiveSource, which reads public
// metrics from the Twitter API.
package postmetrics

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
)

// Snapshot is an instantaneous reading of a post's engagement counters.
type Snapshot struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Reposts  int `json:"reposts"`
}

// Source resolves, validates and polls posts. Poll never fails: on provider
// errors it reports an all-zero snapshot.
type Source interface {
	ResolveID(rawURL string) (string, bool)
	Validate(ctx context.Context, postID string) bool
	Poll(ctx context.Context, postID string) Snapshot
}

// statusURLPatterns are the hosts that serve the same underlying platform.
var statusURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`twitter\.com/\w+/status/(\d+)`),
	regexp.MustCompile(`x\.com/\w+/status/(\d+)`),
}

// ResolveID extracts the numeric post id from a twitter.com or x.com status URL.
func ResolveID(rawURL string) (string, bool) {
	for _, pattern := range statusURLPatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// NewSource returns the simulated source in mock mode and a live source
// backed by fetcher otherwise.
func NewSource(mockMode bool, fetcher TweetFetcher, logger *logrus.Logger) (Source, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if mockMode {
		logger.Info("Running in mock mode, post metrics will be simulated")
		return NewSimulatedSource(logger, nil), nil
	}
	if fetcher == nil {
		return nil, fmt.Errorf("live metrics require a tweet fetcher")
	}
	return NewLiveSource(fetcher, logger), nil
}
