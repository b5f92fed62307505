package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const sweepParallelism = 4

// Service opens database-backed boards for request handlers and the worker.
type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Repository() *Repository {
	return s.repo
}

// Session is a board loaded for one organization. Moves and revision notes
// made on it are held until Commit.
type Session struct {
	*Board
	store *OrgStore

	mu      sync.Mutex
	pending []Move
	notes   []revision
}

type revision struct {
	postID   string
	feedback string
}

func (s *Service) Open(ctx context.Context, orgID, author uuid.UUID) (*Session, error) {
	store := s.repo.ForOrganization(orgID, author)
	sess := &Session{store: store}

	sess.Board = NewBoard(nil,
		WithLogger(s.logger.With("organization_id", orgID)),
		WithFeedbackSink(sess),
		WithOnMove(func(mv Move) {
			sess.mu.Lock()
			sess.pending = append(sess.pending, mv)
			sess.mu.Unlock()
		}),
	)
	if err := sess.Seed(ctx, store); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Session) Store() *OrgStore {
	return s.store
}

// RecordRevision queues a note; Commit writes it together with the move
// back to writing.
func (s *Session) RecordRevision(_ context.Context, postID, feedback string) error {
	s.mu.Lock()
	s.notes = append(s.notes, revision{postID: postID, feedback: feedback})
	s.mu.Unlock()
	return nil
}

// Commit persists pending notes and moves in one transaction.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	pending, notes := s.pending, s.notes
	s.pending, s.notes = nil, nil
	s.mu.Unlock()

	if len(pending) == 0 && len(notes) == 0 {
		return nil
	}

	return s.store.Transaction(ctx, func(tx *OrgStore) error {
		for _, n := range notes {
			if err := tx.RecordRevision(ctx, n.postID, n.feedback); err != nil {
				return err
			}
		}
		for _, mv := range pending {
			if err := tx.SaveMove(ctx, mv); err != nil {
				return err
			}
		}
		return nil
	})
}

// PublishDue marks every scheduled post due by now as posted, across all
// organizations, and returns how many were published.
func (s *Service) PublishDue(ctx context.Context, now time.Time) (int, error) {
	orgs, err := s.repo.OrganizationsWithDuePosts(ctx, now)
	if err != nil {
		return 0, err
	}

	var total atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)

	for _, orgID := range orgs {
		g.Go(func() error {
			sess, err := s.Open(ctx, orgID, uuid.Nil)
			if err != nil {
				return fmt.Errorf("opening board %s: %w", orgID, err)
			}

			ids := sess.PublishDue(now)
			if err := sess.Commit(ctx); err != nil {
				return fmt.Errorf("publishing for %s: %w", orgID, err)
			}
			total.Add(int64(len(ids)))

			s.logger.Info("published due posts", "organization_id", orgID, "count", len(ids))
			return nil
		})
	}

	err = g.Wait()
	return int(total.Load()), err
}
