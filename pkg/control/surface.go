// Package control is the bot's command surface. It validates chat input,
// delegates to the raid engine and turns results into replies.
package control

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/dashboard"
	"github.com/lisanmuaddib/raider-go/pkg/db/models"
	"github.com/lisanmuaddib/raider-go/pkg/raid"
)

// Version is reported in the welcome message.
const Version = "1.0.0"

const (
	DefaultHistoryLimit = 5
	MaxHistoryLimit     = 20
)

// RaidEngine is the part of *raid.Engine the surface drives.
type RaidEngine interface {
	Start(ctx context.Context, chatID int64, postURL string, targets raid.Targets) (raid.View, error)
	Cancel(ctx context.Context, chatID int64, postID string) (int, error)
	HandleButton(ctx context.Context, in raid.Interaction) (string, error)
	List(chatID *int64) []raid.View
}

// RaidHistory looks up finished raids. *memory.RaidStore satisfies it.
type RaidHistory interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]models.Raid, error)
}

// Reply is a message to send back to the chat a command came from.
type Reply struct {
	Text     string
	Markdown bool
}

// Command is a slash command received in a chat.
type Command struct {
	ChatID int64
	UserID int64
	Text   string
}

// Config wires a Surface. History backs /history; nil disables the command.
type Config struct {
	Engine   RaidEngine
	Gateway  chat.Gateway
	History  RaidHistory
	Logger   *logrus.Logger
	BotName  string
	Duration time.Duration
	Now      func() time.Time
}

type Surface struct {
	engine   RaidEngine
	gateway  chat.Gateway
	history  RaidHistory
	logger   *logrus.Logger
	renderer dashboard.Renderer
	duration time.Duration
	now      func() time.Time
}

func NewSurface(config Config) (*Surface, error) {
	if config.Engine == nil {
		return nil, fmt.Errorf("raid engine is required")
	}
	if config.Gateway == nil {
		return nil, fmt.Errorf("chat gateway is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Duration <= 0 {
		config.Duration = raid.DefaultDuration
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Surface{
		engine:   config.Engine,
		gateway:  config.Gateway,
		history:  config.History,
		logger:   config.Logger,
		renderer: dashboard.NewRenderer(config.BotName),
		duration: config.Duration,
		now:      config.Now,
	}, nil
}

func (s *Surface) Welcome() Reply {
	return Reply{Text: fmt.Sprintf("🚀 Welcome to %s v%s! 🚀\n\n"+
		"I help coordinate Twitter engagement campaigns for Web3 projects.\n\n"+
		"Use /help to see available commands.", s.renderer.BotName, Version)}
}

func (s *Surface) Help() Reply {
	return Reply{
		Text: fmt.Sprintf("📢 *%s Commands* 📢\n\n", s.renderer.BotName) +
			"/start - Start the bot\n" +
			"/help - Show this help message\n" +
			"/raid <tweet\\_url> <likes> <comments> <reposts> - Start a new raid\n" +
			"/cancel - Cancel all active raids in this chat\n" +
			"/status - Check active raids status\n" +
			"/history \\[count] - Show recently finished raids\n\n" +
			"Example: /raid https://twitter.com/user/status/123456 100 50 30\n\n" +
			fmt.Sprintf("The raid will last for %d minutes or until all targets are met.\n", int(s.duration/time.Minute)) +
			"Status updates will appear in a single message that updates automatically.",
		Markdown: true,
	}
}

// Raid starts a raid from "<url> <likes> <comments> <reposts>".
func (s *Surface) Raid(ctx context.Context, chatID int64, args []string) Reply {
	if len(args) < 4 {
		return Reply{Text: "⚠️ Incorrect format. Use:\n/raid <tweet_url> <likes> <comments> <reposts>"}
	}

	var counts [3]int
	for i, arg := range args[1:4] {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Reply{Text: "⚠️ Targets must be numbers."}
		}
		counts[i] = n
	}
	targets := raid.Targets{Likes: counts[0], Comments: counts[1], Reposts: counts[2]}
	if targets.Validate() != nil {
		return Reply{Text: "⚠️ All targets must be positive numbers."}
	}

	view, err := s.engine.Start(ctx, chatID, args[0], targets)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":  chatID,
			"post_url": args[0],
		}).Warn("Raid start rejected")
		return Reply{Text: "⚠️ " + strings.TrimPrefix(raid.UserMessage(err), "⚠️ ")}
	}

	s.logger.WithFields(logrus.Fields{
		"raid_id":  view.ID,
		"raid_key": view.Key.String(),
	}).Info("Raid started from chat command")

	return Reply{
		Text: fmt.Sprintf("🚀 %s raid started successfully!\n", s.renderer.BotName) +
			"A status dashboard has been created and will update automatically.",
		Markdown: true,
	}
}

// Cancel stops every raid in the chat.
func (s *Surface) Cancel(ctx context.Context, chatID int64) Reply {
	n, err := s.engine.Cancel(ctx, chatID, "")
	if errors.Is(err, raid.ErrRaidNotFound) {
		return Reply{Text: "No active raids in this chat."}
	}
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Error("Error cancelling raids")
		return Reply{Text: "Error cancelling raids. Please try again."}
	}
	return Reply{Text: fmt.Sprintf("%d raid(s) cancelled successfully.", n)}
}

// Status lists the chat's active raids.
func (s *Surface) Status(chatID int64) Reply {
	views := s.engine.List(&chatID)
	if len(views) == 0 {
		return Reply{Text: "No active raids in this chat.\nStart a new raid with /raid command."}
	}
	entries := make([]dashboard.StatusEntry, 0, len(views))
	for _, v := range views {
		entries = append(entries, dashboard.StatusEntry{PostURL: v.PostURL, EndsAt: v.EndsAt})
	}
	return Reply{Text: s.renderer.Status(entries, s.now()), Markdown: true}
}

// History lists the chat's most recently finished raids. An optional first
// argument sets how many, up to MaxHistoryLimit.
func (s *Surface) History(ctx context.Context, chatID int64, args []string) Reply {
	if s.history == nil {
		return Reply{Text: "Raid history is not enabled."}
	}

	limit := DefaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Reply{Text: "⚠️ Incorrect format. Use:\n/history [count]"}
		}
		limit = min(n, MaxHistoryLimit)
	}

	raids, err := s.history.Recent(ctx, chatID, limit)
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Error("Error loading raid history")
		return Reply{Text: "Failed to load raid history. Please try again."}
	}
	if len(raids) == 0 {
		return Reply{Text: "No finished raids in this chat yet."}
	}

	var b strings.Builder
	b.WriteString("📜 Recent raids:\n")
	for i, r := range raids {
		fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, outcomeIcon(r.Outcome), r.Outcome)
		fmt.Fprintf(&b, "%s\n", r.PostURL)
		fmt.Fprintf(&b, "❤️ %d/%d  💬 %d/%d  🔄 %d/%d\n",
			r.FinalLikes, r.TargetLikes,
			r.FinalComments, r.TargetComments,
			r.FinalReposts, r.TargetReposts)
		fmt.Fprintf(&b, "Ended %s\n", r.FinishedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	return Reply{Text: b.String()}
}

func outcomeIcon(outcome models.RaidOutcome) string {
	switch outcome {
	case models.OutcomeCompleted:
		return "✅"
	case models.OutcomeExpired:
		return "⏰"
	case models.OutcomeCancelled:
		return "🛑"
	default:
		return "⚠️"
	}
}

// Button routes a dashboard button press and answers it exactly once:
// quietly on success, with an alert on failure.
func (s *Surface) Button(ctx context.Context, in raid.Interaction) error {
	log := s.logger.WithFields(logrus.Fields{
		"callback_data": in.Data,
		"chat_id":       in.ChatID,
		"user_id":       in.UserID,
	})
	log.Info("Received callback query")

	notice, err := s.engine.HandleButton(ctx, in)
	alert := false
	if err != nil {
		log.WithError(err).Warn("Callback query failed")
		notice, alert = raid.UserMessage(err), true
	}

	if answerErr := s.gateway.AnswerInteraction(ctx, in.ID, notice, alert); answerErr != nil {
		return fmt.Errorf("failed to answer callback query: %w", answerErr)
	}
	return nil
}

// Dispatch runs a slash command. The boolean is false when the text is not
// a command this bot handles.
func (s *Surface) Dispatch(ctx context.Context, cmd Command) (Reply, bool) {
	name, args, ok := ParseCommand(cmd.Text)
	if !ok {
		return Reply{}, false
	}

	s.logger.WithFields(logrus.Fields{
		"command": name,
		"chat_id": cmd.ChatID,
		"user_id": cmd.UserID,
	}).Debug("Dispatching command")

	switch name {
	case "start":
		return s.Welcome(), true
	case "help":
		return s.Help(), true
	case "raid":
		return s.Raid(ctx, cmd.ChatID, args), true
	case "cancel":
		return s.Cancel(ctx, cmd.ChatID), true
	case "status":
		return s.Status(cmd.ChatID), true
	case "history":
		return s.History(ctx, cmd.ChatID, args), true
	default:
		return Reply{}, false
	}
}

// ParseCommand splits "/name@bot arg1 arg2" into its lowercased name and
// arguments.
func ParseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
