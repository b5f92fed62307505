package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is one piece of client content moving through the production pipeline.
type Post struct {
	Base
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organization_id"`
	Title          string     `gorm:"not null" json:"title"`
	Platform       string     `gorm:"size:16;not null" json:"platform"`
	Status         string     `gorm:"size:16;not null;index;default:'backlog'" json:"status"`
	Position       int        `gorm:"not null;default:0" json:"position"`
	DueDate        time.Time  `gorm:"index" json:"due_date"`
	Thumbnail      string     `json:"thumbnail,omitempty"`
	Caption        string     `gorm:"type:text" json:"caption,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`

	// Relationships
	Organization *Organization  `gorm:"foreignKey:OrganizationID" json:"-"`
	Revisions    []RevisionNote `gorm:"foreignKey:PostID" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}

// RevisionNote is the feedback a client leaves when sending a post back.
type RevisionNote struct {
	Base
	PostID   uuid.UUID `gorm:"type:uuid;index;not null" json:"post_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;index" json:"author_id"`
	Feedback string    `gorm:"type:text;not null" json:"feedback"`
}

func (RevisionNote) TableName() string {
	return "revision_notes"
}
