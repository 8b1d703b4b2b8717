package models

import "time"

// View records one read of a submission. UserID is nil for anonymous readers.
type View struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index:idx_views_user_created,priority:1" json:"userId"`
	SubmissionID uint      `gorm:"not null;index" json:"submissionId"`
	CreatedAt    time.Time `gorm:"index:idx_views_user_created,priority:2,sort:desc" json:"createdAt"`
}

// TagPref accumulates how often a user has viewed submissions carrying Tag.
type TagPref struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_tag_prefs_user_tag,priority:1" json:"userId"`
	Tag       string    `gorm:"size:64;not null;uniqueIndex:idx_tag_prefs_user_tag,priority:2" json:"tag"`
	Weight    int       `gorm:"not null;default:1" json:"weight"`
	UpdatedAt time.Time `json:"updatedAt"`
}
