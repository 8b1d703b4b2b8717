package models

import "time"

// Activity item types.
const (
	ActivitySubmission = "submission"
	ActivityComment    = "comment"
)

// ProfileStats holds the aggregate counters shown on dashboards and profiles.
type ProfileStats struct {
	Submissions int64 `json:"submissions"`
	Comments    int64 `json:"comments"`
	Followers   int64 `json:"followers"`
	Following   int64 `json:"following"`
}

// ActivityItem is one entry in the merged dashboard activity feed.
type ActivityItem struct {
	Type         string    `json:"type"`
	ID           uint      `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Title        string    `json:"title"`
	Content      string    `json:"content,omitempty"`
	SubmissionID uint      `json:"submissionId,omitempty"`
}

// RecentWork is a compact card for the dashboard's latest submissions.
type RecentWork struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	Category     string    `json:"category"`
	CommentCount int64     `json:"commentCount"`
}

// Dashboard is the signed-in figure's own overview.
type Dashboard struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	Stats       ProfileStats   `json:"stats"`
	Activity    []ActivityItem `json:"activity"`
	RecentWork  []RecentWork   `json:"recentWork"`
}

// CommentActivity is a comment joined with the title of the submission it belongs to.
type CommentActivity struct {
	ID              uint
	Content         string
	CreatedAt       time.Time
	SubmissionID    uint
	SubmissionTitle string
}

// PublicProfile is the publicly visible page of a figure.
type PublicProfile struct {
	Username    string               `json:"username"`
	DisplayName string               `json:"displayName"`
	Bio         string               `json:"bio"`
	AvatarURL   string               `json:"avatarUrl"`
	JoinedAt    time.Time            `json:"joinedAt"`
	Stats       ProfileStats         `json:"stats"`
	IsFollowing bool                 `json:"isFollowing"`
	Submissions []SubmissionResponse `json:"submissions"`
}
