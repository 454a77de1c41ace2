package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/interfaces/telegram"
)

const testToken = "123:secret"

type recordedCall struct {
	Method string
	Body   map[string]any
}

// botAPI is a scripted Bot API server.
type botAPI struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
}

func (b *botAPI) respond(method, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[method] = body
}

func (b *botAPI) callsTo(method string) []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedCall
	for _, c := range b.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer GinkgoRecover()
	prefix := "/bot" + testToken + "/"
	Expect(r.URL.Path).To(HavePrefix(prefix))
	Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
	method := strings.TrimPrefix(r.URL.Path, prefix)

	raw, err := io.ReadAll(r.Body)
	Expect(err).NotTo(HaveOccurred())
	var body map[string]any
	Expect(json.Unmarshal(raw, &body)).To(Succeed())

	b.mu.Lock()
	b.calls = append(b.calls, recordedCall{Method: method, Body: body})
	resp, ok := b.responses[method]
	b.mu.Unlock()
	if !ok {
		resp = `{"ok":true,"result":true}`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, resp)
}

var _ = Describe("TelegramClient", func() {
	var (
		ctx    context.Context
		api    *botAPI
		server *httptest.Server
		client *telegram.TelegramClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &botAPI{responses: make(map[string]string)}
		server = httptest.NewServer(api)
		DeferCleanup(server.Close)

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		var err error
		client, err = telegram.NewTelegramClient(&telegram.TelegramConfig{
			Token:       testToken,
			BaseURL:     server.URL,
			PollTimeout: time.Second,
			SendRate:    1000,
			SendBurst:   10,
			Logger:      logger,
		}, telegram.WithHTTPClient(server.Client()))
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a token", func() {
		_, err := telegram.NewTelegramClient(&telegram.TelegramConfig{SendRate: 1, Logger: logrus.New()})
		Expect(err).To(MatchError(ContainSubstring("TELEGRAM_TOKEN")))
	})

	Describe("Send", func() {
		It("posts markdown with previews disabled and an inline keyboard", func() {
			api.respond("sendMessage", `{"ok":true,"result":{"message_id":77,"chat":{"id":-100,"type":"supergroup"},"date":1}}`)

			ref, err := client.Send(ctx, -100, chat.Message{
				Text: "*hello*",
				Keyboard: chat.Keyboard{
					{{Text: "🔄 Refresh", Data: "refresh_-100_1"}},
					{{Text: "🔗 Open Post", URL: "https://x.com/a/status/1"}},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(Equal(chat.MessageRef(77)))

			calls := api.callsTo("sendMessage")
			Expect(calls).To(HaveLen(1))
			body := calls[0].Body
			Expect(body["chat_id"]).To(BeEquivalentTo(-100))
			Expect(body["parse_mode"]).To(Equal("Markdown"))
			Expect(body["disable_web_page_preview"]).To(BeTrue())

			keyboard := body["reply_markup"].(map[string]any)["inline_keyboard"].([]any)
			Expect(keyboard).To(HaveLen(2))
			first := keyboard[0].([]any)[0].(map[string]any)
			Expect(first["callback_data"]).To(Equal("refresh_-100_1"))
			Expect(first).NotTo(HaveKey("url"))
			link := keyboard[1].([]any)[0].(map[string]any)
			Expect(link["url"]).To(Equal("https://x.com/a/status/1"))
			Expect(link).NotTo(HaveKey("callback_data"))
		})

		It("omits the keyboard when there is none", func() {
			api.respond("sendMessage", `{"ok":true,"result":{"message_id":1,"chat":{"id":5,"type":"private"},"date":1}}`)
			_, err := client.Send(ctx, 5, chat.Message{Text: "no buttons"})
			Expect(err).NotTo(HaveOccurred())
			Expect(api.callsTo("sendMessage")[0].Body).NotTo(HaveKey("reply_markup"))
		})

		It("sends plain messages without a parse mode", func() {
			api.respond("sendMessage", `{"ok":true,"result":{"message_id":1,"chat":{"id":5,"type":"private"},"date":1}}`)
			_, err := client.Send(ctx, 5, chat.Message{Text: "/raid <tweet_url>", Plain: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(api.callsTo("sendMessage")[0].Body).NotTo(HaveKey("parse_mode"))
		})

		It("surfaces API errors with their description", func() {
			api.respond("sendMessage", `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`)
			_, err := client.Send(ctx, 5, chat.Message{Text: "x"})

			var apiErr *telegram.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Code).To(Equal(429))
			Expect(apiErr.RetryAfter).To(Equal(3))
			Expect(apiErr.Method).To(Equal("sendMessage"))
		})
	})

	Describe("Edit", func() {
		It("treats an unchanged message as success", func() {
			api.respond("editMessageText", `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
			Expect(client.Edit(ctx, 5, 9, chat.Message{Text: "same"})).To(Succeed())
		})

		It("reports other failures", func() {
			api.respond("editMessageText", `{"ok":false,"error_code":400,"description":"Bad Request: message to edit not found"}`)
			Expect(client.Edit(ctx, 5, 9, chat.Message{Text: "gone"})).NotTo(Succeed())
		})
	})

	Describe("Delete", func() {
		It("skips the call for a zero reference", func() {
			Expect(client.Delete(ctx, 5, 0)).To(Succeed())
			Expect(api.callsTo("deleteMessage")).To(BeEmpty())
		})

		It("deletes by message id", func() {
			Expect(client.Delete(ctx, 5, 41)).To(Succeed())
			calls := api.callsTo("deleteMessage")
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Body["message_id"]).To(BeEquivalentTo(41))
		})

		It("accepts messages that are already gone", func() {
			api.respond("deleteMessage", `{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`)
			Expect(client.Delete(ctx, 5, 41)).To(Succeed())
		})
	})

	It("answers callback queries", func() {
		Expect(client.AnswerInteraction(ctx, "cb-9", "Raid not found.", true)).To(Succeed())
		calls := api.callsTo("answerCallbackQuery")
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Body["callback_query_id"]).To(Equal("cb-9"))
		Expect(calls[0].Body["text"]).To(Equal("Raid not found."))
		Expect(calls[0].Body["show_alert"]).To(BeTrue())
	})

	It("long-polls updates from an offset", func() {
		api.respond("getUpdates", `{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":3,"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":-100,"type":"group"},"date":1,"text":"/status"}},
			{"update_id":11,"callback_query":{"id":"cb","from":{"id":7,"is_bot":false,"first_name":"A"},"data":"cancel_-100_1","message":{"message_id":4,"chat":{"id":-100,"type":"group"},"date":1}}}
		]}`)

		updates, err := client.GetUpdates(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(updates).To(HaveLen(2))
		Expect(updates[0].Message.Text).To(Equal("/status"))
		Expect(updates[1].CallbackQuery.Data).To(Equal("cancel_-100_1"))
		Expect(updates[1].CallbackQuery.Message.Chat.ID).To(BeEquivalentTo(-100))

		body := api.callsTo("getUpdates")[0].Body
		Expect(body["offset"]).To(BeEquivalentTo(10))
		Expect(body["timeout"]).To(BeEquivalentTo(1))
	})

	It("reads the bot identity", func() {
		api.respond("getMe", `{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"Raider","username":"raider_bot"}}`)
		me, err := client.GetMe(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(me.Username).To(Equal("raider_bot"))
	})
})
