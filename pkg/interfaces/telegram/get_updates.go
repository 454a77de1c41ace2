package telegram

import (
	"context"

	"github.com/sirupsen/logrus"
)

// GetUpdates long-polls for messages and button presses after offset. It
// blocks for up to the configured poll timeout when nothing is pending.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var updates []Update
	err := c.callMethod(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.config.PollTimeout.Seconds()),
		AllowedUpdates: []string{"message", "callback_query"},
	}, &updates)
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		c.logger.WithFields(logrus.Fields{
			"count":  len(updates),
			"offset": offset,
		}).Debug("Received updates")
	}
	return updates, nil
}
