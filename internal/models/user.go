// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/jinzhu/copier"
)

// RoleFigure is the role every locally provisioned user starts with.
const RoleFigure = "FIGURE"

// User is a local figure profile bound to an external identity subject.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthID      *string   `gorm:"uniqueIndex;size:191" json:"-"`
	Username    string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	DisplayName string    `gorm:"size:120" json:"displayName"`
	Bio         string    `gorm:"type:text" json:"bio"`
	AvatarURL   string    `json:"avatarUrl"`
	Role        string    `gorm:"size:32;not null;default:FIGURE" json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AuthorSummary is the author projection embedded in submissions and comments.
type AuthorSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// copyFields is copier.Copy; tests replace it to exercise the fallback.
var copyFields = copier.Copy

// Summary projects the user onto the public author fields.
func (u *User) Summary() AuthorSummary {
	var out AuthorSummary
	if u == nil {
		return out
	}
	if err := copyFields(&out, u); err != nil {
		return AuthorSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
	}
	return out
}

// MeResponse is the payload returned by GET /api/me.
type MeResponse struct {
	ID              uint      `json:"id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName"`
	Bio             string    `json:"bio"`
	AvatarURL       string    `json:"avatarUrl"`
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
	SubmissionCount int64     `json:"submissionCount"`
}
