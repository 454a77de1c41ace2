package postmetrics

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// span is an inclusive random range.
type span struct{ min, max int }

func (s span) draw(rng *rand.Rand) int {
	return s.min + rng.Intn(s.max-s.min+1)
}

// growthTier holds the per-poll increase ranges used while the poll count is
// below upTo.
type growthTier struct {
	upTo     int
	likes    span
	reposts  span
	comments span
}

var (
	seedLikes    = span{5, 15}
	seedReposts  = span{2, 8}
	seedComments = span{1, 5}

	// Growth decelerates as a raid goes on. The last tier applies to every
	// poll from the tenth onwards.
	growthTiers = []growthTier{
		{upTo: 5, likes: span{3, 7}, reposts: span{1, 3}, comments: span{1, 2}},
		{upTo: 10, likes: span{2, 5}, reposts: span{1, 2}, comments: span{0, 1}},
		{upTo: -1, likes: span{1, 3}, reposts: span{0, 1}, comments: span{0, 1}},
	}
)

func tierFor(calls int) growthTier {
	for _, tier := range growthTiers {
		if tier.upTo < 0 || calls < tier.upTo {
			return tier
		}
	}
	return growthTiers[len(growthTiers)-1]
}

type simulatedPost struct {
	Snapshot
	calls int
}

// SimulatedSource fabricates organically growing engagement. State is kept per
// post id for the lifetime of the source.
type SimulatedSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	posts  map[string]*simulatedPost
	logger *logrus.Logger
}

// NewSimulatedSource creates a simulated source. A nil rng is replaced by a
// time-seeded one; tests pass a fixed seed.
func NewSimulatedSource(logger *logrus.Logger, rng *rand.Rand) *SimulatedSource {
	if logger == nil {
		logger = logrus.New()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedSource{
		rng:    rng,
		posts:  make(map[string]*simulatedPost),
		logger: logger,
	}
}

// ResolveID implements Source.
func (s *SimulatedSource) ResolveID(rawURL string) (string, bool) {
	return ResolveID(rawURL)
}

// Validate implements Source. Every post is reachable in simulation.
func (s *SimulatedSource) Validate(_ context.Context, postID string) bool {
	s.logger.WithField("post_id", postID).Debug("Mock mode: considering post valid without API check")
	return true
}

// Poll implements Source.
func (s *SimulatedSource) Poll(_ context.Context, postID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		post = &simulatedPost{
			Snapshot: Snapshot{
				Likes:    seedLikes.draw(s.rng),
				Reposts:  seedReposts.draw(s.rng),
				Comments: seedComments.draw(s.rng),
			},
		}
		s.posts[postID] = post
		s.logger.WithFields(logrus.Fields{
			"post_id":  postID,
			"likes":    post.Likes,
			"reposts":  post.Reposts,
			"comments": post.Comments,
		}).Info("Initialized mock metrics")
		return post.Snapshot
	}

	post.calls++
	tier := tierFor(post.calls)
	post.Likes += tier.likes.draw(s.rng)
	post.Reposts += tier.reposts.draw(s.rng)
	post.Comments += tier.comments.draw(s.rng)

	s.logger.WithFields(logrus.Fields{
		"post_id":  postID,
		"calls":    post.calls,
		"likes":    post.Likes,
		"reposts":  post.Reposts,
		"comments": post.Comments,
	}).Debug("Updated mock metrics")

	return post.Snapshot
}
