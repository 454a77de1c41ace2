package postmetrics

import (
	"context"

	"github.com/lisanmuaddib/raider-go/pkg/interfaces/twitter"
	"github.com/sirupsen/logrus"
)

// TweetFetcher looks up a single post. *twitter.TwitterClient satisfies it.
type TweetFetcher interface {
	GetTweet(ctx context.Context, tweetID string) (*twitter.Tweet, error)
}

// LiveSource reads public metrics from the Twitter API.
type LiveSource struct {
	fetcher TweetFetcher
	logger  *logrus.Logger
}

func NewLiveSource(fetcher TweetFetcher, logger *logrus.Logger) *LiveSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &LiveSource{fetcher: fetcher, logger: logger}
}

// ResolveID implements Source.
func (s *LiveSource) ResolveID(rawURL string) (string, bool) {
	return ResolveID(rawURL)
}

// Validate implements Source. Lookup failures of any kind mean "unreachable".
func (s *LiveSource) Validate(ctx context.Context, postID string) bool {
	tweet, err := s.fetcher.GetTweet(ctx, postID)
	if err != nil {
		s.logger.WithError(err).WithField("post_id", postID).Error("Error validating post")
		return false
	}
	return tweet != nil
}

// Poll implements Source. Counters the API does not supply read as zero, and any
// error yields an all-zero snapshot.
func (s *LiveSource) Poll(ctx context.Context, postID string) Snapshot {
	log := s.logger.WithField("post_id", postID)

	tweet, err := s.fetcher.GetTweet(ctx, postID)
	if err != nil {
		log.WithError(err).Error("Error fetching post metrics")
		return Snapshot{}
	}
	if tweet == nil || tweet.PublicMetrics == nil {
		log.Warn("Post has no public metrics")
		return Snapshot{}
	}

	snap := Snapshot{
		Likes:    tweet.PublicMetrics.LikeCount,
		Reposts:  tweet.PublicMetrics.RetweetCount,
		Comments: s.estimateCommentCount(ctx, postID),
	}
	log.WithFields(logrus.Fields{
		"likes":    snap.Likes,
		"reposts":  snap.Reposts,
		"comments": snap.Comments,
	}).Debug("Fetched post metrics")
	return snap
}

// estimateCommentCount is a placeholder: no working comment-counting method
// has been settled on, so live raids always report zero comments.
func (s *LiveSource) estimateCommentCount(_ context.Context, _ string) int {
	return 0
}
