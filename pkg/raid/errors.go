package raid

import "errors"

var (
	ErrInvalidTargets       = errors.New("all targets must be positive numbers")
	ErrInvalidURL           = errors.New("invalid post url")
	ErrPostUnavailable      = errors.New("post not found or not accessible")
	ErrRaidExists           = errors.New("a raid for this post is already active")
	ErrRaidNotFound         = errors.New("raid not found")
	ErrDashboardUnavailable = errors.New("dashboard message could not be posted")
	ErrStartFailed          = errors.New("raid could not be started")
	ErrRefreshFailed        = errors.New("dashboard refresh failed")
	ErrUnknownAction        = errors.New("unknown callback action")
	ErrEngineStopped        = errors.New("raid engine is shut down")
)

// UserMessage maps engine errors to the text shown in chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTargets):
		return "⚠️ All targets must be positive numbers."
	case errors.Is(err, ErrInvalidURL):
		return "Invalid tweet URL. Please check and try again."
	case errors.Is(err, ErrPostUnavailable):
		return "Tweet not found or not accessible. Please check and try again."
	case errors.Is(err, ErrRaidExists):
		return "A raid for this tweet is already running in this chat."
	case errors.Is(err, ErrRaidNotFound):
		return "Raid not found."
	case errors.Is(err, ErrDashboardUnavailable):
		return "Failed to post the raid dashboard. Please try again."
	case errors.Is(err, ErrStartFailed):
		return "Failed to start the raid. Please try again."
	case errors.Is(err, ErrRefreshFailed):
		return "Failed to refresh raid status."
	case errors.Is(err, ErrUnknownAction):
		return "Unknown callback query."
	default:
		return "Something went wrong. Please try again."
	}
}
