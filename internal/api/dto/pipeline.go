package dto

import (
	"strings"
	"time"

	"github.com/hugh/tarviz/internal/pipeline"
)

type PostDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	Status    string    `json:"status"`
	DueDate   time.Time `json:"due_date"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Caption   string    `json:"caption,omitempty"`
}

type ColumnDTO struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Color string    `json:"color"`
	Empty bool      `json:"empty"`
	Posts []PostDTO `json:"posts"`
}

type BoardResponse struct {
	Columns []ColumnDTO `json:"columns"`
}

func NewPostDTO(p pipeline.Post) PostDTO {
	return PostDTO{
		ID:        p.ID,
		Title:     p.Title,
		Platform:  string(p.Platform),
		Status:    string(p.Status),
		DueDate:   p.DueDate,
		Thumbnail: p.Thumbnail,
		Caption:   p.Caption,
	}
}

func NewBoardResponse(cols []pipeline.ColumnView) BoardResponse {
	out := BoardResponse{Columns: make([]ColumnDTO, len(cols))}
	for i, col := range cols {
		posts := make([]PostDTO, len(col.Posts))
		for j, p := range col.Posts {
			posts[j] = NewPostDTO(p)
		}
		out.Columns[i] = ColumnDTO{
			ID:    string(col.Status),
			Label: col.Label,
			Color: col.Color,
			Empty: col.Empty,
			Posts: posts,
		}
	}
	return out
}

// MovePostRequest is a drop of a dragged card onto a column.
type MovePostRequest struct {
	Status string `json:"status"`
}

func (r MovePostRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if _, err := pipeline.ParseStatus(r.Status); err != nil {
		errors["status"] = "Unknown pipeline status"
	}
	return errors
}

type RevisionRequest struct {
	Feedback string `json:"feedback"`
}

func (r RevisionRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Feedback) == "" {
		errors["feedback"] = "Feedback is required"
	}
	return errors
}

type RevisionDTO struct {
	ID        string    `json:"id"`
	Feedback  string    `json:"feedback"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
