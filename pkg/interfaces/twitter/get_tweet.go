package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTweetNotFound is returned when the lookup succeeds but carries no Tweet.
var ErrTweetNotFound = errors.New("tweet not found")

// GetTweet retrieves a single tweet with its public metrics.
// Rate limit: 300/15m (app), 900/15m (user)
func (c *TwitterClient) GetTweet(ctx context.Context, tweetID string) (*Tweet, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":   "GetTweet",
		"tweet_id": tweetID,
	})

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/%s", c.config.TweetEndpoint, url.PathEscape(tweetID))
	query := url.Values{}
	query.Set("tweet.fields", strings.Join(c.config.GetTweetFields(), ","))

	resp, err := c.doWithRetry(ctx, http.MethodGet, endpoint, query)
	if err != nil {
		log.WithError(err).Error("Failed to fetch tweet")
		return nil, fmt.Errorf("failed to fetch tweet: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleResponse(resp); err != nil {
		return nil, err
	}

	var lookup TweetLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		log.WithError(err).Error("Failed to decode response")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if lookup.Data == nil {
		if len(lookup.Errors) > 0 {
			for _, apiErr := range lookup.Errors {
				log.WithFields(logrus.Fields{
					"error_title":  apiErr.Title,
					"error_detail": apiErr.Detail,
				}).Warn("Twitter API error")
			}
			apiErr := lookup.Errors[0]
			return nil, fmt.Errorf("%w: %v", ErrTweetNotFound, &apiErr)
		}
		return nil, ErrTweetNotFound
	}

	log.WithField("public_metrics", lookup.Data.PublicMetrics).Debug("Received tweet response")
	return lookup.Data, nil
}
