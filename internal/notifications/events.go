package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types delivered to connected clients.
const (
	EventFollow         = "follow"
	EventCommentCreated = "comment_created"
)

// Event is the envelope written to user channels and forwarded verbatim to sockets.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// FollowPayload tells a user who just followed them.
type FollowPayload struct {
	FollowerID uint   `json:"followerId"`
	Username   string `json:"username"`
}

// CommentCreatedPayload tells an author someone commented on their submission.
type CommentCreatedPayload struct {
	SubmissionID uint   `json:"submissionId"`
	CommentID    uint   `json:"commentId"`
	Username     string `json:"username"`
}

// Encode renders the event envelope as JSON.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return string(b), nil
}
