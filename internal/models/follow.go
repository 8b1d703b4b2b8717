package models

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_edge,priority:1" json:"followerId"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_edge,priority:2;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FollowState is the toggle result: the caller's new state and the target's counts.
type FollowState struct {
	IsFollowing bool  `json:"isFollowing"`
	Followers   int64 `json:"followers"`
	Following   int64 `json:"following"`
}
