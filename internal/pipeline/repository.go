package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hugh/tarviz/internal/database/models"
)

var ErrPostNotFound = errors.New("post not found")

// Repository persists boards in the database, one board per organization.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ForOrganization scopes the repository to one client's board. author is
// recorded on revision notes and may be uuid.Nil for system changes.
func (r *Repository) ForOrganization(orgID, author uuid.UUID) *OrgStore {
	return &OrgStore{db: r.db, orgID: orgID, author: author}
}

// SeedDemo gives a new organization the starter posts.
func (r *Repository) SeedDemo(ctx context.Context, orgID uuid.UUID) error {
	demo := DemoPosts()
	rows := make([]models.Post, len(demo))
	for i, p := range demo {
		rows[i] = models.Post{
			OrganizationID: orgID,
			Title:          p.Title,
			Platform:       string(p.Platform),
			Status:         string(p.Status),
			Position:       i,
			DueDate:        p.DueDate,
			Thumbnail:      p.Thumbnail,
			Caption:        p.Caption,
		}
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("seeding demo posts: %w", err)
	}
	return nil
}

// OrganizationsWithDuePosts lists organizations holding scheduled posts due by now.
func (r *Repository) OrganizationsWithDuePosts(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("status = ? AND due_date <= ?", string(StatusScheduled), now).
		Distinct().
		Pluck("organization_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing due organizations: %w", err)
	}
	return ids, nil
}

// OrgStore is the board source, feedback sink and move recorder for one organization.
type OrgStore struct {
	db     *gorm.DB
	orgID  uuid.UUID
	author uuid.UUID
}

// Transaction runs fn against a store bound to one database transaction.
func (s *OrgStore) Transaction(ctx context.Context, fn func(tx *OrgStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OrgStore{db: tx, orgID: s.orgID, author: s.author})
	})
}

func (s *OrgStore) ListPosts(ctx context.Context) ([]Post, error) {
	var rows []models.Post
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", s.orgID).
		Order("position ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	posts := make([]Post, len(rows))
	for i, row := range rows {
		posts[i] = Post{
			ID:        row.ID.String(),
			Title:     row.Title,
			Platform:  Platform(row.Platform),
			Status:    Status(row.Status),
			DueDate:   row.DueDate,
			Thumbnail: row.Thumbnail,
			Caption:   row.Caption,
		}
	}
	return posts, nil
}

func (s *OrgStore) RecordRevision(ctx context.Context, postID, feedback string) error {
	id, err := s.ownedPost(ctx, postID)
	if err != nil {
		return err
	}

	note := models.RevisionNote{PostID: id, AuthorID: s.author, Feedback: feedback}
	return s.db.WithContext(ctx).Create(&note).Error
}

// Revisions returns the feedback left on a post, oldest first.
func (s *OrgStore) Revisions(ctx context.Context, postID string) ([]models.RevisionNote, error) {
	id, err := s.ownedPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var notes []models.RevisionNote
	err = s.db.WithContext(ctx).
		Where("post_id = ?", id).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

// SaveMove writes a status change made on the board.
func (s *OrgStore) SaveMove(ctx context.Context, mv Move) error {
	id, err := uuid.Parse(mv.PostID)
	if err != nil {
		return ErrPostNotFound
	}

	updates := map[string]any{"status": string(mv.To)}
	if mv.To == StatusPosted {
		updates["published_at"] = time.Now()
	}

	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND organization_id = ?", id, s.orgID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("saving move: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (s *OrgStore) ownedPost(ctx context.Context, postID string) (uuid.UUID, error) {
	id, err := uuid.Parse(postID)
	if err != nil {
		return uuid.Nil, ErrPostNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND organization_id = ?", id, s.orgID).
		Count(&count).Error; err != nil {
		return uuid.Nil, err
	}
	if count == 0 {
		return uuid.Nil, ErrPostNotFound
	}
	return id, nil
}
