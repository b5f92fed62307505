// Package pipeline implements the content-approval board: posts moving
// through a fixed sequence of production stages.
package pipeline

import (
	"fmt"
	"time"
)

// Status is a production stage. The order of Statuses is the board's
// column order; the board itself does not enforce forward-only movement.
type Status string

const (
	StatusBacklog   Status = "backlog"
	StatusWriting   Status = "writing"
	StatusDesign    Status = "design"
	StatusReview    Status = "review"
	StatusApproval  Status = "approval"
	StatusScheduled Status = "scheduled"
	StatusPosted    Status = "posted"
)

var Statuses = []Status{
	StatusBacklog,
	StatusWriting,
	StatusDesign,
	StatusReview,
	StatusApproval,
	StatusScheduled,
	StatusPosted,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown pipeline status %q", s)
	}
	return st, nil
}

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformLinkedIn, PlatformTwitter, PlatformFacebook:
		return true
	}
	return false
}

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Platform  Platform  `json:"platform"`
	Status    Status    `json:"status"`
	DueDate   time.Time `json:"dueDate"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Caption   string    `json:"caption,omitempty"`
}

// Column is the static display definition of one status.
type Column struct {
	Status Status `json:"id"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}

var columns = []Column{
	{StatusBacklog, "Backlog", "border-slate-300"},
	{StatusWriting, "Content Writing", "border-blue-400"},
	{StatusDesign, "Design / Creative", "border-purple-400"},
	{StatusReview, "Internal Review", "border-yellow-400"},
	{StatusApproval, "Client Approval", "border-orange-500"},
	{StatusScheduled, "Scheduled", "border-emerald-500"},
	{StatusPosted, "Posted", "border-slate-800"},
}

// ColumnDefs returns a copy of the seven column definitions in board order.
func ColumnDefs() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DemoPosts is the starter content shown to a new client.
func DemoPosts() []Post {
	return []Post{
		{ID: "post-1", Title: "Diwali Festival Promo", Platform: PlatformInstagram, Status: StatusBacklog, DueDate: day("2023-11-10")},
		{ID: "post-2", Title: "CEO Quote Card", Platform: PlatformLinkedIn, Status: StatusWriting, DueDate: day("2023-10-25")},
		{ID: "post-3", Title: "Product Teaser Video", Platform: PlatformInstagram, Status: StatusDesign, DueDate: day("2023-10-28"), Thumbnail: "https://picsum.photos/id/20/200/200"},
		{ID: "post-4", Title: "5 Tips for SEO", Platform: PlatformTwitter, Status: StatusReview, DueDate: day("2023-10-26")},
		{
			ID:        "post-5",
			Title:     "Weekend Special Reel",
			Platform:  PlatformInstagram,
			Status:    StatusApproval,
			DueDate:   day("2023-10-27"),
			Thumbnail: "https://picsum.photos/id/30/200/200",
			Caption:   "Get ready for the weekend with our special offer! #weekendvibes",
		},
		{ID: "post-6", Title: "Monday Motivation", Platform: PlatformLinkedIn, Status: StatusScheduled, DueDate: day("2023-10-30")},
		{ID: "post-7", Title: "Welcome to Tarviz", Platform: PlatformFacebook, Status: StatusPosted, DueDate: day("2023-10-01")},
	}
}
