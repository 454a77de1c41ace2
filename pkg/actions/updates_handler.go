package actions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/control"
	"github.com/lisanmuaddib/raider-go/pkg/interfaces/telegram"
	"github.com/lisanmuaddib/raider-go/pkg/raid"
)

const (
	DefaultRetryDelay    = time.Second
	DefaultMaxRetryDelay = 30 * time.Second
)

// UpdateSource long-polls the chat platform for new updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
}

// CommandRouter is the part of *control.Surface the handler feeds.
type CommandRouter interface {
	Dispatch(ctx context.Context, cmd control.Command) (control.Reply, bool)
	Button(ctx context.Context, in raid.Interaction) error
}

type UpdatesOptions struct {
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// UpdatesHandler pulls chat updates and routes commands and button presses
// to the control surface. Updates are handled one at a time in arrival order.
type UpdatesHandler struct {
	updates  UpdateSource
	router   CommandRouter
	gateway  chat.Gateway
	logger   *logrus.Logger
	options  UpdatesOptions
	offset   int64
	done     chan struct{}
	stopOnce sync.Once
}

func NewUpdatesHandler(updates UpdateSource, router CommandRouter, gateway chat.Gateway, logger *logrus.Logger, options UpdatesOptions) *UpdatesHandler {
	if options.RetryDelay <= 0 {
		options.RetryDelay = DefaultRetryDelay
	}
	if options.MaxRetryDelay <= 0 {
		options.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if options.MaxRetryDelay < options.RetryDelay {
		options.MaxRetryDelay = options.RetryDelay
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &UpdatesHandler{
		updates: updates,
		router:  router,
		gateway: gateway,
		logger:  logger,
		options: options,
		done:    make(chan struct{}),
	}
}

// Name returns the unique identifier for this action
func (h *UpdatesHandler) Name() string {
	return "updates_handler"
}

// Execute implements the Action interface
func (h *UpdatesHandler) Execute(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	log := h.logger.WithField("action", h.Name())
	log.Info("Starting update polling")

	delay := h.options.RetryDelay
	for {
		select {
		case <-h.done:
			return nil
		case <-ctx.Done():
			if h.stopped() {
				return nil
			}
			return ctx.Err()
		default:
		}

		updates, err := h.updates.GetUpdates(ctx, h.offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).WithField("retry_in", delay).Warn("Failed to fetch updates")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			delay = min(delay*2, h.options.MaxRetryDelay)
			continue
		}
		delay = h.options.RetryDelay

		for _, update := range updates {
			h.offset = update.UpdateID + 1
			h.HandleUpdate(ctx, update)
		}
	}
}

// Stop implements the Action interface
func (h *UpdatesHandler) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *UpdatesHandler) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// HandleUpdate routes a single update. Failures and panics are logged, never
// returned, so one bad update cannot stall the poll loop.
func (h *UpdatesHandler) HandleUpdate(ctx context.Context, update telegram.Update) {
	log := h.logger.WithField("update_id", update.UpdateID)
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Panic while handling update")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		in := raid.Interaction{
			ID:     q.ID,
			Data:   q.Data,
			UserID: q.From.ID,
		}
		if q.Message != nil {
			in.ChatID = q.Message.Chat.ID
		}
		if err := h.router.Button(ctx, in); err != nil {
			log.WithError(err).Error("Failed to handle callback query")
		}

	case update.Message != nil && update.Message.Text != "":
		m := update.Message
		cmd := control.Command{ChatID: m.Chat.ID, Text: m.Text}
		if m.From != nil {
			cmd.UserID = m.From.ID
		}
		reply, ok := h.router.Dispatch(ctx, cmd)
		if !ok {
			return
		}
		_, err := h.gateway.Send(ctx, m.Chat.ID, chat.Message{Text: reply.Text, Plain: !reply.Markdown})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("chat_id", m.Chat.ID).Error("Failed to send command reply")
		}
	}
}
