// Package memory persists finished raids so operators can look back at how a
// campaign went after its dashboard is gone.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lisanmuaddib/raider-go/pkg/db/models"
	"github.com/lisanmuaddib/raider-go/pkg/raid"
)

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

// RaidStore writes raid summaries to postgres. It satisfies raid.History.
type RaidStore struct {
	logger *logrus.Logger
	db     *gorm.DB
}

var _ raid.History = (*RaidStore)(nil)

func NewRaidStore(logger *logrus.Logger, db *gorm.DB) *RaidStore {
	return &RaidStore{
		logger: logger,
		db:     db,
	}
}

// Record stores one finished raid. Recording the same raid twice keeps the
// first row.
func (s *RaidStore) Record(ctx context.Context, summary raid.Summary) error {
	row, err := toModel(summary)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to save raid: %w", result.Error)
	}

	s.logger.WithFields(logrus.Fields{
		"raid_id":  row.ID,
		"chat_id":  row.ChatID,
		"post_id":  row.PostID,
		"status":   row.Outcome,
		"updates":  row.Updates,
		"samples":  len(row.LikesSeries),
		"inserted": result.RowsAffected,
	}).Debug("Saved raid to database")

	return nil
}

// Recent returns the newest finished raids for a chat, newest first.
func (s *RaidStore) Recent(ctx context.Context, chatID int64, limit int) ([]models.Raid, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var raids []models.Raid
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("started_at DESC").
		Limit(limit).
		Find(&raids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load raids for chat %d: %w", chatID, err)
	}
	return raids, nil
}

func toModel(summary raid.Summary) (models.Raid, error) {
	outcome, err := outcomeFor(summary.Status)
	if err != nil {
		return models.Raid{}, err
	}

	likes := make(pq.Int64Array, len(summary.Samples))
	comments := make(pq.Int64Array, len(summary.Samples))
	reposts := make(pq.Int64Array, len(summary.Samples))
	for i, s := range summary.Samples {
		likes[i] = int64(s.Likes)
		comments[i] = int64(s.Comments)
		reposts[i] = int64(s.Reposts)
	}

	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	return models.Raid{
		ID:             summary.ID,
		ChatID:         summary.Key.ChatID,
		PostID:         summary.Key.PostID,
		PostURL:        summary.PostURL,
		TargetLikes:    summary.Targets.Likes,
		TargetComments: summary.Targets.Comments,
		TargetReposts:  summary.Targets.Reposts,
		FinalLikes:     summary.Current.Likes,
		FinalComments:  summary.Current.Comments,
		FinalReposts:   summary.Current.Reposts,
		LikesSeries:    likes,
		CommentsSeries: comments,
		RepostsSeries:  reposts,
		Outcome:        outcome,
		Updates:        summary.Updates,
		StartedAt:      summary.StartedAt,
		EndsAt:         summary.EndsAt,
		FinishedAt:     finishedAt,
	}, nil
}

func outcomeFor(status raid.Status) (models.RaidOutcome, error) {
	switch status {
	case raid.StatusCompleted:
		return models.OutcomeCompleted, nil
	case raid.StatusExpired:
		return models.OutcomeExpired, nil
	case raid.StatusCancelled:
		return models.OutcomeCancelled, nil
	case raid.StatusFailed:
		return models.OutcomeFailed, nil
	default:
		return "", fmt.Errorf("raid is not finished: status %q", status)
	}
}
