// Package dashboard renders raid state into chat messages. Everything here is
// pure: the same state and clock reading always produce the same message.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
)

const (
	// BarWidth is the number of cells in a progress bar.
	BarWidth = 10

	filledCell = "█"
	emptyCell  = "░"

	// DefaultBotName is used in headers when the renderer has no name.
	DefaultBotName = "Raider"

	ActionRefresh = "refresh"
	ActionCancel  = "cancel"
)

// Progress is one tracked counter against its target.
type Progress struct {
	Current int
	Target  int
}

// State is the slice of a raid the dashboard needs.
type State struct {
	Key      string
	PostURL  string
	EndsAt   time.Time
	Likes    Progress
	Comments Progress
	Reposts  Progress
}

// Renderer formats dashboards and terminal messages for a named bot.
type Renderer struct {
	BotName string
}

func NewRenderer(botName string) Renderer {
	if botName == "" {
		botName = DefaultBotName
	}
	return Renderer{BotName: botName}
}

// ProgressBar draws a BarWidth-cell bar followed by the completion percentage.
// Overshooting the target fills the bar and caps the label at 100%; a
// non-positive target renders as empty.
func ProgressBar(current, target int) string {
	filled, percent := 0, 0
	if target > 0 && current > 0 {
		filled = min(BarWidth*current/target, BarWidth)
		percent = min(100*current/target, 100)
	}
	return strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, BarWidth-filled) +
		fmt.Sprintf(" %d%%", percent)
}

// FormatRemaining renders a duration as "<minutes>m <seconds>s", floored at zero.
func FormatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return "0m 0s"
	}
	total := int(remaining / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// Controls builds the two-row inline keyboard for a raid: refresh and cancel
// routed back by key, then a link out to the post.
func Controls(key, postURL string) chat.Keyboard {
	return chat.Keyboard{
		{
			{Text: "🔄 Refresh", Data: ActionRefresh + "_" + key},
			{Text: "🛑 Cancel Raid", Data: ActionCancel + "_" + key},
		},
		{
			{Text: "🔗 Open Post", URL: postURL},
		},
	}
}

// Render produces the live dashboard with controls.
func (r Renderer) Render(state State, now time.Time) chat.Message {
	return chat.Message{
		Text:     r.body(state, now),
		Keyboard: Controls(state.Key, state.PostURL),
	}
}

// Completed is the one-shot message for a raid whose targets were all met.
func (r Renderer) Completed(state State, now time.Time) chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("🎉 *%s - RAID SUCCESSFUL* - All targets met!\n\n", r.BotName) + r.body(state, now),
	}
}

// Expired is the one-shot message for a raid that ran out of time.
func (r Renderer) Expired(state State, now time.Time) chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("⏱ *%s - RAID COMPLETED* - Time expired!\n\n", r.BotName) + r.body(state, now),
	}
}

// Cancelled is the one-shot message for a raid stopped by a user.
func (r Renderer) Cancelled() chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("🛑 *%s - RAID CANCELLED*\n\nThis raid has been cancelled by a user.", r.BotName),
	}
}

func (r Renderer) body(state State, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *%s - RAID IN PROGRESS* 🚀\n\n", r.BotName)
	fmt.Fprintf(&b, "⏱ Time Remaining: %s\n\n", FormatRemaining(state.EndsAt.Sub(now)))
	b.WriteString("📊 *Progress*:\n")
	writeCounter(&b, "❤️ Likes", state.Likes)
	writeCounter(&b, "🔄 Reposts", state.Reposts)
	writeCounter(&b, "💬 Comments", state.Comments)
	b.WriteString("🏆 *Raid ends when all targets are met or time expires!*")
	return b.String()
}

func writeCounter(b *strings.Builder, label string, p Progress) {
	fmt.Fprintf(b, "%s: %d/%d\n%s\n\n", label, p.Current, p.Target, ProgressBar(p.Current, p.Target))
}

// StatusEntry is one active raid in a /status listing.
type StatusEntry struct {
	PostURL string
	EndsAt  time.Time
}

// Status lists active raids with the time each has left.
func (r Renderer) Status(entries []StatusEntry, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *%s - Active Raids (%d)* 🚀\n\n", r.BotName, len(entries))
	for i, entry := range entries {
		fmt.Fprintf(&b, "*Raid #%d*\n", i+1)
		fmt.Fprintf(&b, "Post: [Link](%s)\n", entry.PostURL)
		fmt.Fprintf(&b, "Time Left: %s\n", FormatRemaining(entry.EndsAt.Sub(now)))
		b.WriteString("Status: Active\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
