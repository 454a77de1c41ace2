package twitter

import "fmt"

// PublicMetrics are the engagement counters any caller may read on a Tweet
type PublicMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count,omitempty"`
	ImpressionCount int `json:"impression_count,omitempty"`
}

// Tweet represents the subset of Twitter v2 post fields used for metrics lookups
type Tweet struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	AuthorID       string         `json:"author_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	CreatedAt      string         `json:"created_at,omitempty"`
	PublicMetrics  *PublicMetrics `json:"public_metrics,omitempty"`
}

// TweetLookupResponse is the response of GET /2/tweets/:id
type TweetLookupResponse struct {
	Data   *Tweet         `json:"data"`
	Errors []TwitterError `json:"errors,omitempty"`
}

// TwitterError represents an error returned by the Twitter API
type TwitterError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *TwitterError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Detail
	}
	if msg == "" {
		msg = e.Title
	}
	return fmt.Sprintf("Twitter API error %d: %s", e.Code, msg)
}
