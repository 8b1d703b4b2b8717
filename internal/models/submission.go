package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission categories.
const (
	CategoryUnboundedSpace   = "unbounded-space"
	CategoryLibraryOfFigures = "library-of-figures"
	CategoryProjectLab       = "project-lab"
)

// Submission visibility values.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// CategoryTagPrefix marks a tag preference derived from a category.
const CategoryTagPrefix = "cat:"

// Categories lists every accepted category in display order.
var Categories = []string{CategoryUnboundedSpace, CategoryLibraryOfFigures, CategoryProjectLab}

// Submission is a published writeup, optionally with an attached file.
type Submission struct {
	ID            uint                        `gorm:"primaryKey;index:idx_submissions_created_id,priority:2,sort:desc" json:"id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Content       *string                     `gorm:"type:text" json:"content"`
	FileURL       *string                     `json:"fileUrl"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	AINote        *string                     `gorm:"column:ai_note;type:text" json:"aiNote"`
	Category      string                      `gorm:"size:32;not null;default:unbounded-space;index" json:"category"`
	Visibility    string                      `gorm:"size:16;not null;default:PUBLIC" json:"visibility"`
	AllowComments bool                        `gorm:"not null" json:"allowComments"`
	Upvotes       int                         `gorm:"not null;default:0" json:"upvotes"`
	AuthorID      uint                        `gorm:"not null;index" json:"authorId"`
	Author        *User                       `gorm:"foreignKey:AuthorID" json:"-"`
	CommentCount  int64                       `gorm:"->;-:migration" json:"commentCount"`
	CreatedAt     time.Time                   `gorm:"index:idx_submissions_created_id,priority:1,sort:desc" json:"createdAt"`
}

// SubmissionTag indexes a submission by tag for recommendation lookups.
type SubmissionTag struct {
	SubmissionID uint   `gorm:"primaryKey;autoIncrement:false" json:"submissionId"`
	Tag          string `gorm:"primaryKey;size:24;index" json:"tag"`
}

// IsPublic reports whether anyone may see the submission.
func (s *Submission) IsPublic() bool {
	return s.Visibility == VisibilityPublic
}

// VisibleTo reports whether viewerID (0 for anonymous) may see the submission.
func (s *Submission) VisibleTo(viewerID uint) bool {
	return s.IsPublic() || (viewerID != 0 && s.AuthorID == viewerID)
}

// SubmissionResponse is the API shape of a submission with its author projection.
type SubmissionResponse struct {
	ID            uint          `json:"id"`
	Title         string        `json:"title"`
	Content       *string       `json:"content"`
	FileURL       *string       `json:"fileUrl"`
	Tags          []string      `json:"tags"`
	AINote        *string       `json:"aiNote"`
	Category      string        `json:"category"`
	Visibility    string        `json:"visibility"`
	AllowComments bool          `json:"allowComments"`
	Upvotes       int           `json:"upvotes"`
	CommentCount  int64         `json:"commentCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	Author        AuthorSummary `json:"author"`
}

// ToResponse builds the API shape, flattening the author relation.
func (s *Submission) ToResponse() SubmissionResponse {
	tags := []string(s.Tags)
	if tags == nil {
		tags = []string{}
	}
	return SubmissionResponse{
		ID:            s.ID,
		Title:         s.Title,
		Content:       s.Content,
		FileURL:       s.FileURL,
		Tags:          tags,
		AINote:        s.AINote,
		Category:      s.Category,
		Visibility:    s.Visibility,
		AllowComments: s.AllowComments,
		Upvotes:       s.Upvotes,
		CommentCount:  s.CommentCount,
		CreatedAt:     s.CreatedAt,
		Author:        s.Author.Summary(),
	}
}

// SubmissionsToResponse maps a slice of submissions onto their API shape.
func SubmissionsToResponse(items []*Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToResponse())
	}
	return out
}

// SubmissionPage is one keyset page of the public listing.
type SubmissionPage struct {
	Items      []SubmissionResponse `json:"items"`
	NextCursor *uint                `json:"nextCursor"`
}
