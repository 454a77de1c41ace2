package integration

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/db"
	"github.com/lisanmuaddib/raider-go/pkg/db/models"
	"github.com/lisanmuaddib/raider-go/pkg/memory"
	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
	"github.com/lisanmuaddib/raider-go/pkg/raid"
)

var _ = Describe("RaidStore", func() {
	var (
		store  *memory.RaidStore
		ctx    context.Context
		cancel context.CancelFunc
		chatID int64
	)

	BeforeEach(func() {
		if os.Getenv("INTEGRATION_TESTS") != "true" {
			Skip("Skipping integration test")
		}

		cfg, err := db.NewConfigFromEnv()
		Expect(err).NotTo(HaveOccurred())
		if !cfg.Enabled() {
			Skip("DB_HOST not set")
		}

		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)

		gormDB, err := db.SetupDatabase(logger, cfg)
		Expect(err).NotTo(HaveOccurred())
		store = memory.NewRaidStore(logger, gormDB)

		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		// A fresh chat per run keeps earlier rows out of the results.
		chatID = -time.Now().UnixNano()
		DeferCleanup(func() {
			gormDB.Where("chat_id = ?", chatID).Delete(&models.Raid{})
		})
	})

	summary := func(postID string, status raid.Status, started time.Time) raid.Summary {
		return raid.Summary{
			View: raid.View{
				ID:        uuid.NewString(),
				Key:       raid.Key{ChatID: chatID, PostID: postID},
				PostURL:   "https://x.com/a/status/" + postID,
				Targets:   raid.Targets{Likes: 10, Comments: 5, Reposts: 2},
				Current:   postmetrics.Snapshot{Likes: 4, Comments: 2, Reposts: 1},
				StartedAt: started,
				EndsAt:    started.Add(30 * time.Minute),
				Status:    status,
			},
			Samples:    []postmetrics.Snapshot{{Likes: 4, Comments: 2, Reposts: 1}},
			FinishedAt: started.Add(time.Minute),
		}
	}

	It("returns recorded raids newest first", func() {
		started := time.Now().UTC().Truncate(time.Second)
		older := summary("1", raid.StatusExpired, started.Add(-time.Hour))
		newer := summary("2", raid.StatusFailed, started)

		Expect(store.Record(ctx, older)).To(Succeed())
		Expect(store.Record(ctx, newer)).To(Succeed())
		Expect(store.Record(ctx, newer)).To(Succeed())

		raids, err := store.Recent(ctx, chatID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(raids).To(HaveLen(2))
		Expect(raids[0].PostID).To(Equal("2"))
		Expect(raids[0].Outcome).To(Equal(models.OutcomeFailed))
		Expect(raids[1].PostID).To(Equal("1"))

		raids, err = store.Recent(ctx, chatID, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(raids).To(HaveLen(1))
	})
})
