package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lisanmuaddib/raider-go/pkg/interfaces/telegram"
)

var _ = Describe("Telegram GetMe", func() {
	It("identifies the bot behind TELEGRAM_TOKEN", func() {
		if os.Getenv("INTEGRATION_TESTS") != "true" {
			Skip("Skipping integration test")
		}

		config, err := telegram.NewTelegramConfig()
		Expect(err).NotTo(HaveOccurred())

		client, err := telegram.NewTelegramClient(config)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		me, err := client.GetMe(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(me.IsBot).To(BeTrue())
		Expect(me.Username).NotTo(BeEmpty())
	})
})
