package pipeline_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/hugh/tarviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*pipeline.Service, *testutil.TestSetup) {
	t.Helper()
	setup := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.NewService(pipeline.NewRepository(setup.DB), logger), setup
}

func TestSession_CommitPersistsMoves(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "A", "design", time.Now())
	b := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "B", "approval", time.Now())

	sess, err := svc.Open(ctx, setup.Org.ID, setup.User.ID)
	require.NoError(t, err)
	require.Len(t, sess.Posts(), 2)

	require.True(t, sess.BeginDrag(a.ID.String()))
	require.True(t, sess.DropOn(pipeline.StatusReview))
	require.True(t, sess.Approve(b.ID.String()))
	require.NoError(t, sess.Commit(ctx))

	var rows []models.Post
	require.NoError(t, setup.DB.Order("title").Find(&rows).Error)
	assert.Equal(t, "review", rows[0].Status)
	assert.Equal(t, "scheduled", rows[1].Status)

	// Nothing pending after a commit.
	require.NoError(t, sess.Commit(ctx))
}

func TestSession_RevisionPersistsNote(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)
	post := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "Reel", "approval", time.Now())

	sess, err := svc.Open(ctx, setup.Org.ID, setup.User.ID)
	require.NoError(t, err)

	ok, err := sess.RequestRevision(ctx, post.ID.String(), "  Brighter colors  ")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, sess.Commit(ctx))

	notes, err := sess.Store().Revisions(ctx, post.ID.String())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Brighter colors", notes[0].Feedback)

	var saved models.Post
	require.NoError(t, setup.DB.First(&saved, "id = ?", post.ID).Error)
	assert.Equal(t, "writing", saved.Status)
}

func TestSession_RevisionRolledBackWithMove(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)
	post := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "Reel", "approval", time.Now())

	sess, err := svc.Open(ctx, setup.Org.ID, setup.User.ID)
	require.NoError(t, err)

	ok, err := sess.RequestRevision(ctx, post.ID.String(), "Brighter colors")
	require.NoError(t, err)
	require.True(t, ok)

	var notes int64
	require.NoError(t, setup.DB.Model(&models.RevisionNote{}).Count(&notes).Error)
	assert.Zero(t, notes, "note is held until commit")

	// The post disappears before the move is saved.
	require.NoError(t, setup.DB.Delete(&models.Post{}, "id = ?", post.ID).Error)
	require.ErrorIs(t, sess.Commit(ctx), pipeline.ErrPostNotFound)

	require.NoError(t, setup.DB.Unscoped().Model(&models.RevisionNote{}).Count(&notes).Error)
	assert.Zero(t, notes)
}

func TestService_PublishDue(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	due := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "due", "scheduled", now.Add(-time.Minute))
	future := testutil.CreateTestPost(t, setup.DB, setup.Org.ID, "future", "scheduled", now.Add(time.Hour))
	other := testutil.CreateTestOrg(t, setup.DB)
	otherDue := testutil.CreateTestPost(t, setup.DB, other.ID, "other due", "scheduled", now.Add(-time.Hour))

	count, err := svc.PublishDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	status := func(id any) string {
		var p models.Post
		require.NoError(t, setup.DB.First(&p, "id = ?", id).Error)
		return p.Status
	}
	assert.Equal(t, "posted", status(due.ID))
	assert.Equal(t, "posted", status(otherDue.ID))
	assert.Equal(t, "scheduled", status(future.ID))

	count, err = svc.PublishDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, count)
}
