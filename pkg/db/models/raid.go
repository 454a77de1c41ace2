package models

import (
	"time"

	"github.com/lib/pq"
)

// RaidOutcome is how a raid ended
type RaidOutcome string

const (
	OutcomeCompleted RaidOutcome = "completed"
	OutcomeExpired   RaidOutcome = "expired"
	OutcomeCancelled RaidOutcome = "cancelled"
	OutcomeFailed    RaidOutcome = "failed"
)

// Raid is the database model for a finished raid
type Raid struct {
	ID      string `gorm:"primaryKey;column:id;type:uuid"`
	ChatID  int64  `gorm:"column:chat_id;not null;index:idx_raids_chat_started,priority:1"`
	PostID  string `gorm:"column:post_id;not null"`
	PostURL string `gorm:"column:post_url;not null"`

	// Targets
	TargetLikes    int `gorm:"column:target_likes;not null"`
	TargetComments int `gorm:"column:target_comments;not null"`
	TargetReposts  int `gorm:"column:target_reposts;not null"`

	// Last snapshot
	FinalLikes    int `gorm:"column:final_likes;not null;default:0"`
	FinalComments int `gorm:"column:final_comments;not null;default:0"`
	FinalReposts  int `gorm:"column:final_reposts;not null;default:0"`

	// Every polled snapshot in order, one array per counter
	LikesSeries    pq.Int64Array `gorm:"column:likes_series;type:bigint[]"`
	CommentsSeries pq.Int64Array `gorm:"column:comments_series;type:bigint[]"`
	RepostsSeries  pq.Int64Array `gorm:"column:reposts_series;type:bigint[]"`

	// Operational Fields
	Outcome    RaidOutcome `gorm:"column:outcome;type:raid_outcome;not null"`
	Updates    int         `gorm:"column:updates;not null;default:0"`
	StartedAt  time.Time   `gorm:"column:started_at;not null;index:idx_raids_chat_started,priority:2"`
	EndsAt     time.Time   `gorm:"column:ends_at;not null"`
	FinishedAt time.Time   `gorm:"column:finished_at;not null"`
	CreatedAt  time.Time   `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Raid model
func (Raid) TableName() string {
	return "raids"
}
