package postmetrics_test

import (
	"context"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

var _ = Describe("ResolveID", func() {
	DescribeTable("extracts the status id",
		func(rawURL, expected string) {
			id, ok := postmetrics.ResolveID(rawURL)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(expected))
		},
		Entry("twitter.com", "https://twitter.com/user/status/123456", "123456"),
		Entry("x.com", "https://x.com/user/status/123456", "123456"),
		Entry("www prefix", "https://www.twitter.com/some_user/status/987?s=20", "987"),
		Entry("mobile prefix", "https://mobile.x.com/a/status/42/photo/1", "42"),
	)

	DescribeTable("rejects unrelated URLs",
		func(rawURL string) {
			id, ok := postmetrics.ResolveID(rawURL)
			Expect(ok).To(BeFalse())
			Expect(id).To(BeEmpty())
		},
		Entry("other host", "https://example.com/user/status/123456"),
		Entry("profile link", "https://x.com/user"),
		Entry("non-numeric id", "https://x.com/user/status/abc"),
		Entry("empty", ""),
	)
})

var _ = Describe("NewSource", func() {
	It("uses the simulated source in mock mode", func() {
		source, err := postmetrics.NewSource(true, nil, quietLogger())
		Expect(err).NotTo(HaveOccurred())
		Expect(source).To(BeAssignableToTypeOf(&postmetrics.SimulatedSource{}))
	})

	It("needs a fetcher for live metrics", func() {
		_, err := postmetrics.NewSource(false, nil, quietLogger())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("SimulatedSource", func() {
	var (
		ctx    context.Context
		source *postmetrics.SimulatedSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = postmetrics.NewSimulatedSource(quietLogger(), rand.New(rand.NewSource(7)))
	})

	It("considers every post reachable", func() {
		Expect(source.Validate(ctx, "anything")).To(BeTrue())
	})

	It("seeds small plausible counters on the first poll", func() {
		snap := source.Poll(ctx, "1")
		Expect(snap.Likes).To(BeNumerically("~", 10, 5))
		Expect(snap.Reposts).To(BeNumerically("~", 5, 3))
		Expect(snap.Comments).To(BeNumerically("~", 3, 2))
	})

	It("grows every counter and slows down over time", func() {
		previous := source.Poll(ctx, "2")
		for poll := 2; poll <= 30; poll++ {
			current := source.Poll(ctx, "2")
			likes := current.Likes - previous.Likes
			reposts := current.Reposts - previous.Reposts
			comments := current.Comments - previous.Comments

			Expect(likes).To(BeNumerically(">=", 0))
			Expect(reposts).To(BeNumerically(">=", 0))
			Expect(comments).To(BeNumerically(">=", 0))

			calls := poll - 1
			switch {
			case calls < 5:
				Expect(likes).To(BeNumerically(">=", 3), "poll %d", poll)
				Expect(reposts).To(BeNumerically(">=", 1), "poll %d", poll)
				Expect(comments).To(BeNumerically(">=", 1), "poll %d", poll)
			case calls >= 10:
				Expect(likes).To(BeNumerically("<=", 3), "poll %d", poll)
				Expect(reposts).To(BeNumerically("<=", 1), "poll %d", poll)
				Expect(comments).To(BeNumerically("<=", 1), "poll %d", poll)
			}
			previous = current
		}
	})

	It("keeps independent state per post", func() {
		first := source.Poll(ctx, "a")
		for i := 0; i < 5; i++ {
			source.Poll(ctx, "a")
		}
		other := source.Poll(ctx, "b")
		Expect(other.Likes).To(BeNumerically("<=", 15))
		Expect(source.Poll(ctx, "a").Likes).To(BeNumerically(">", first.Likes))
	})
})
