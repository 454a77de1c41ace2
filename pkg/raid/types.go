package raid

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lisanmuaddib/raider-go/pkg/chat"
	"github.com/lisanmuaddib/raider-go/pkg/dashboard"
	"github.com/lisanmuaddib/raider-go/pkg/postmetrics"
)

// Key identifies a raid: one post tracked in one chat.
type Key struct {
	ChatID int64
	PostID string
}

// String renders the key as "<chat>_<post>", the form embedded in button data.
func (k Key) String() string {
	return fmt.Sprintf("%d_%s", k.ChatID, k.PostID)
}

// ParseKey reverses Key.String. Chat ids may be negative, so the split happens
// on the last underscore.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("malformed raid key %q", s)
	}
	chatID, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed chat id in raid key %q: %w", s, err)
	}
	return Key{ChatID: chatID, PostID: s[i+1:]}, nil
}

// Targets are the engagement counts a raid must reach.
type Targets struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Reposts  int `json:"reposts"`
}

// Validate requires every target to be positive.
func (t Targets) Validate() error {
	if t.Likes <= 0 || t.Comments <= 0 || t.Reposts <= 0 {
		return fmt.Errorf("%w: likes=%d comments=%d reposts=%d", ErrInvalidTargets, t.Likes, t.Comments, t.Reposts)
	}
	return nil
}

// MetBy reports whether every counter in s has reached its target.
func (t Targets) MetBy(s postmetrics.Snapshot) bool {
	return s.Likes >= t.Likes && s.Comments >= t.Comments && s.Reposts >= t.Reposts
}

// Status is a raid's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	// StatusFailed marks a raid whose first dashboard could not be posted.
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// View is a read-only copy of a raid's state.
type View struct {
	ID           string
	Key          Key
	PostURL      string
	Targets      Targets
	Current      postmetrics.Snapshot
	StartedAt    time.Time
	EndsAt       time.Time
	DashboardRef chat.MessageRef
	Status       Status
	Updates      int
}

// Remaining is the time left before the deadline, never negative.
func (v View) Remaining(now time.Time) time.Duration {
	return max(v.EndsAt.Sub(now), 0)
}

func (v View) dashboardState() dashboard.State {
	return dashboard.State{
		Key:      v.Key.String(),
		PostURL:  v.PostURL,
		EndsAt:   v.EndsAt,
		Likes:    dashboard.Progress{Current: v.Current.Likes, Target: v.Targets.Likes},
		Comments: dashboard.Progress{Current: v.Current.Comments, Target: v.Targets.Comments},
		Reposts:  dashboard.Progress{Current: v.Current.Reposts, Target: v.Targets.Reposts},
	}
}
