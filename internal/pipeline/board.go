package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Move reasons reported to OnMove.
const (
	ReasonDrag     = "drag"
	ReasonApprove  = "approve"
	ReasonRevision = "revision"
	ReasonPublish  = "publish"
)

// Source supplies the posts a board starts with.
type Source interface {
	ListPosts(ctx context.Context) ([]Post, error)
}

// FeedbackSink receives the text a client enters when requesting changes.
type FeedbackSink interface {
	RecordRevision(ctx context.Context, postID, feedback string) error
}

// Move describes one status change.
type Move struct {
	PostID string
	From   Status
	To     Status
	Reason string
}

// ColumnView is a column together with the posts currently in it.
type ColumnView struct {
	Column
	Posts []Post `json:"posts"`
	Empty bool   `json:"empty"`
}

type Option func(*Board)

func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.logger = l }
}

func WithFeedbackSink(s FeedbackSink) Option {
	return func(b *Board) { b.feedback = s }
}

// WithOnMove registers a hook called after each status change, outside the
// board's lock.
func WithOnMove(fn func(Move)) Option {
	return func(b *Board) { b.onMove = fn }
}

// Board holds the posts and the drag session. It is safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	posts    []Post
	dragging string

	logger   *slog.Logger
	feedback FeedbackSink
	onMove   func(Move)
}

func NewBoard(posts []Post, opts ...Option) *Board {
	b := &Board{
		posts:  append([]Post(nil), posts...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Seed replaces the board's posts with those from src and ends any drag.
func (b *Board) Seed(ctx context.Context, src Source) error {
	posts, err := src.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("loading posts: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append([]Post(nil), posts...)
	b.dragging = ""
	return nil
}

// BeginDrag starts dragging id, replacing any earlier drag. Unknown ids are ignored.
func (b *Board) BeginDrag(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexLocked(id) < 0 {
		return false
	}
	b.dragging = id
	return true
}

// Dragging returns the id being dragged, if any.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging, b.dragging != ""
}

func (b *Board) CancelDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dragging = ""
}

// DropOn moves the dragged post to status and ends the drag. Without an
// active drag it does nothing. It reports whether the post's status changed.
func (b *Board) DropOn(status Status) bool {
	if !status.Valid() {
		return false
	}

	b.mu.Lock()
	id := b.dragging
	if id == "" {
		b.mu.Unlock()
		return false
	}
	b.dragging = ""
	mv, ok := b.setStatusLocked(id, status, ReasonDrag)
	b.mu.Unlock()

	b.notify(mv, ok)
	return ok
}

// Approve schedules the post. It is applied from any column.
func (b *Board) Approve(id string) bool {
	b.mu.Lock()
	mv, ok := b.setStatusLocked(id, StatusScheduled, ReasonApprove)
	b.mu.Unlock()

	b.notify(mv, ok)
	return ok
}

// RequestRevision sends the post back to writing after recording feedback.
// Blank feedback abandons the request. If the sink fails the status is left
// unchanged so the request can be retried.
func (b *Board) RequestRevision(ctx context.Context, id, feedback string) (bool, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return false, nil
	}
	if _, ok := b.Post(id); !ok {
		return false, nil
	}

	if b.feedback != nil {
		if err := b.feedback.RecordRevision(ctx, id, feedback); err != nil {
			return false, fmt.Errorf("recording revision feedback: %w", err)
		}
	}

	b.mu.Lock()
	mv, ok := b.setStatusLocked(id, StatusWriting, ReasonRevision)
	b.mu.Unlock()

	b.notify(mv, ok)
	return ok, nil
}

// PublishDue moves scheduled posts whose due date is not after now to posted.
func (b *Board) PublishDue(now time.Time) []string {
	var moves []Move

	b.mu.Lock()
	for _, p := range b.posts {
		if p.Status != StatusScheduled || p.DueDate.After(now) {
			continue
		}
		if mv, ok := b.setStatusLocked(p.ID, StatusPosted, ReasonPublish); ok {
			moves = append(moves, mv)
		}
	}
	b.mu.Unlock()

	ids := make([]string, 0, len(moves))
	for _, mv := range moves {
		b.notify(mv, true)
		ids = append(ids, mv.PostID)
	}
	return ids
}

func (b *Board) Post(id string) (Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(id)
	if i < 0 {
		return Post{}, false
	}
	return b.posts[i], true
}

// Posts returns a copy of every post in insertion order.
func (b *Board) Posts() []Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Post(nil), b.posts...)
}

// Columns projects the posts onto the seven columns. Posts keep insertion
// order within a column.
func (b *Board) Columns() []ColumnView {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]ColumnView, len(columns))
	for i, col := range columns {
		views[i] = ColumnView{Column: col, Posts: []Post{}}
		for _, p := range b.posts {
			if p.Status == col.Status {
				views[i].Posts = append(views[i].Posts, p)
			}
		}
		views[i].Empty = len(views[i].Posts) == 0
	}
	return views
}

func (b *Board) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range b.posts {
		if b.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) setStatusLocked(id string, to Status, reason string) (Move, bool) {
	i := b.indexLocked(id)
	if i < 0 {
		return Move{}, false
	}

	from := b.posts[i].Status
	if (reason == ReasonApprove || reason == ReasonRevision) && from != StatusApproval {
		b.logger.Warn("pipeline action outside client approval column",
			"post_id", id,
			"action", reason,
			"status", from,
		)
	}
	if from == to {
		return Move{}, false
	}

	b.posts[i].Status = to
	return Move{PostID: id, From: from, To: to, Reason: reason}, true
}

func (b *Board) notify(mv Move, ok bool) {
	if !ok {
		return
	}
	b.logger.Debug("post moved", "post_id", mv.PostID, "from", mv.From, "to", mv.To, "reason", mv.Reason)
	if b.onMove != nil {
		b.onMove(mv)
	}
}
