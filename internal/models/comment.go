package models

import "time"

// Comment is a reply left by a figure on a submission.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	AuthorID     uint      `gorm:"not null;index" json:"authorId"`
	Author       *User     `gorm:"foreignKey:AuthorID" json:"-"`
	SubmissionID uint      `gorm:"not null;index:idx_comments_submission_created,priority:1" json:"submissionId"`
	CreatedAt    time.Time `gorm:"index:idx_comments_submission_created,priority:2" json:"createdAt"`
}

// CommentResponse is the API shape of a comment.
type CommentResponse struct {
	ID           uint          `json:"id"`
	Content      string        `json:"content"`
	SubmissionID uint          `json:"submissionId"`
	CreatedAt    time.Time     `json:"createdAt"`
	Author       AuthorSummary `json:"author"`
}

// ToResponse flattens the author relation.
func (c *Comment) ToResponse() CommentResponse {
	return CommentResponse{
		ID:           c.ID,
		Content:      c.Content,
		SubmissionID: c.SubmissionID,
		CreatedAt:    c.CreatedAt,
		Author:       c.Author.Summary(),
	}
}
