package twitter_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/interfaces/twitter"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ = Describe("GetTweet", func() {
	var (
		server    *httptest.Server
		client    *twitter.TwitterClient
		responses chan string
		statuses  chan int
		calls     atomic.Int32
	)

	BeforeEach(func() {
		responses = make(chan string, 8)
		statuses = make(chan int, 8)
		calls.Store(0)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			calls.Add(1)
			Expect(r.URL.Path).To(Equal("/2/tweets/1850000000000000000"))
			Expect(r.URL.Query().Get("tweet.fields")).To(Equal("id,text,public_metrics"))
			w.WriteHeader(<-statuses)
			fmt.Fprint(w, <-responses)
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = twitter.NewTwitterClient(&twitter.TwitterConfig{
			BearerToken:   "token",
			BaseURL:       server.URL + "/2",
			TweetEndpoint: "/tweets",
			RateLimit:     1000,
			RateWindow:    1,
			RetryAttempts: 1,
			DefaultFields: []string{"id", "text"},
			MetricFields:  []string{"public_metrics"},
			Logger:        quietLogger(),
		}, twitter.WithHTTPClient(server.Client()))
		Expect(err).NotTo(HaveOccurred())
	})

	reply := func(status int, body string) {
		statuses <- status
		responses <- body
	}

	It("decodes public metrics", func() {
		reply(http.StatusOK, `{"data":{"id":"1850000000000000000","text":"gm","public_metrics":{"like_count":7,"retweet_count":3,"reply_count":2,"quote_count":0}}}`)

		tweet, err := client.GetTweet(context.Background(), "1850000000000000000")
		Expect(err).NotTo(HaveOccurred())
		Expect(tweet.PublicMetrics.LikeCount).To(Equal(7))
		Expect(tweet.PublicMetrics.RetweetCount).To(Equal(3))
	})

	It("retries server errors once", func() {
		reply(http.StatusServiceUnavailable, `{"title":"Service Unavailable"}`)
		reply(http.StatusOK, `{"data":{"id":"1850000000000000000","text":"gm"}}`)

		tweet, err := client.GetTweet(context.Background(), "1850000000000000000")
		Expect(err).NotTo(HaveOccurred())
		Expect(tweet.ID).To(Equal("1850000000000000000"))
		Expect(calls.Load()).To(BeEquivalentTo(2))
	})

	It("does not retry client errors", func() {
		reply(http.StatusUnauthorized, `{"title":"Unauthorized","detail":"Unauthorized","type":"about:blank","status":401}`)

		_, err := client.GetTweet(context.Background(), "1850000000000000000")
		var apiErr *twitter.TwitterError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Code).To(Equal(http.StatusUnauthorized))
		Expect(calls.Load()).To(BeEquivalentTo(1))
	})

	It("reports lookups without data as not found", func() {
		reply(http.StatusOK, `{"errors":[{"title":"Not Found Error","detail":"Could not find tweet"}]}`)

		_, err := client.GetTweet(context.Background(), "1850000000000000000")
		Expect(errors.Is(err, twitter.ErrTweetNotFound)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("Could not find tweet")))
	})
})

var _ = Describe("TwitterConfig", func() {
	It("accepts app-only credentials", func() {
		config := &twitter.TwitterConfig{BearerToken: "t", RateLimit: 300, RateWindow: 15, Logger: quietLogger()}
		Expect(config.Validate()).To(Succeed())
		Expect(config.BaseURL).To(Equal("https://api.twitter.com/2"))
		Expect(config.HasUserAuth()).To(BeFalse())
		Expect(config.HasReadAccess()).To(BeTrue())
	})

	It("requires some credentials", func() {
		config := &twitter.TwitterConfig{RateLimit: 300, RateWindow: 15, Logger: quietLogger()}
		Expect(config.Validate()).To(MatchError(ContainSubstring("Bearer token")))
	})

	It("rejects a zero rate limit", func() {
		config := &twitter.TwitterConfig{BearerToken: "t", RateWindow: 15, Logger: quietLogger()}
		Expect(config.Validate()).To(MatchError("rate limit must be positive"))
	})

	It("appends extra tweet fields", func() {
		config := &twitter.TwitterConfig{DefaultFields: []string{"id"}, MetricFields: []string{"public_metrics"}}
		Expect(config.GetTweetFields("lang")).To(Equal([]string{"id", "public_metrics", "lang"}))
	})
})

var _ = Describe("NewAuthenticator", func() {
	It("prefers user context when all OAuth credentials are present", func() {
		auth, err := twitter.NewAuthenticator(&twitter.TwitterConfig{
			ConsumerKey:       "ck",
			ConsumerSecret:    "cs",
			AccessToken:       "at",
			AccessTokenSecret: "ats",
			BearerToken:       "bt",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.Mode()).To(Equal(twitter.AuthModeUser))
	})

	It("falls back to the bearer token", func() {
		auth, err := twitter.NewAuthenticator(&twitter.TwitterConfig{ConsumerKey: "ck", BearerToken: "bt"})
		Expect(err).NotTo(HaveOccurred())
		Expect(auth.Mode()).To(Equal(twitter.AuthModeApp))
	})
})

var _ = Describe("NewTwitterConfig", func() {
	It("reports malformed numeric settings", func() {
		GinkgoT().Setenv("TWITTER_BEARER_TOKEN", "bt")
		GinkgoT().Setenv("TWITTER_RATE_LIMIT", "lots")

		_, err := twitter.NewTwitterConfig()
		Expect(err).To(MatchError(ContainSubstring(`invalid TWITTER_RATE_LIMIT "lots"`)))
	})

	It("defaults the request timeout", func() {
		GinkgoT().Setenv("TWITTER_BEARER_TOKEN", "bt")
		GinkgoT().Setenv("TWITTER_RETRY_ATTEMPTS", "")
		GinkgoT().Setenv("TWITTER_TIMEOUT_SECONDS", "")

		config, err := twitter.NewTwitterConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(config.RequestTimeout).To(Equal(30 * time.Second))
		Expect(config.RetryAttempts).To(Equal(3))
	})
})
