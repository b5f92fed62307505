package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	notes map[string][]string
	err   error
}

func (s *recordingSink) RecordRevision(_ context.Context, postID, feedback string) error {
	if s.err != nil {
		return s.err
	}
	if s.notes == nil {
		s.notes = make(map[string][]string)
	}
	s.notes[postID] = append(s.notes[postID], feedback)
	return nil
}

type staticSource []Post

func (s staticSource) ListPosts(context.Context) ([]Post, error) {
	return s, nil
}

type failingSource struct{}

func (failingSource) ListPosts(context.Context) ([]Post, error) {
	return nil, errors.New("db down")
}

func statuses(b *Board) map[string]Status {
	out := make(map[string]Status)
	for _, p := range b.Posts() {
		out[p.ID] = p.Status
	}
	return out
}

func columnIDs(b *Board, s Status) []string {
	for _, col := range b.Columns() {
		if col.Status != s {
			continue
		}
		ids := make([]string, 0, len(col.Posts))
		for _, p := range col.Posts {
			ids = append(ids, p.ID)
		}
		return ids
	}
	return nil
}

func TestDragAndDrop_MovesOnlyDraggedPost(t *testing.T) {
	var moves []Move
	b := NewBoard(DemoPosts(), WithOnMove(func(m Move) { moves = append(moves, m) }))
	before := statuses(b)

	require.True(t, b.BeginDrag("post-3"))
	assert.True(t, b.DropOn(StatusReview))

	want := before
	want["post-3"] = StatusReview
	if diff := cmp.Diff(want, statuses(b)); diff != "" {
		t.Errorf("statuses after drop (-want +got):\n%s", diff)
	}

	assert.NotContains(t, columnIDs(b, StatusDesign), "post-3")
	assert.Equal(t, []string{"post-4", "post-3"}, columnIDs(b, StatusReview))

	_, dragging := b.Dragging()
	assert.False(t, dragging)
	assert.Equal(t, []Move{{PostID: "post-3", From: StatusDesign, To: StatusReview, Reason: ReasonDrag}}, moves)
}

func TestDropOn_WithoutDragIsNoop(t *testing.T) {
	b := NewBoard(DemoPosts())
	before := b.Posts()

	assert.False(t, b.DropOn(StatusPosted))
	assert.Equal(t, before, b.Posts())
}

func TestDropOn_SameColumnIsIdempotent(t *testing.T) {
	called := false
	b := NewBoard(DemoPosts(), WithOnMove(func(Move) { called = true }))

	require.True(t, b.BeginDrag("post-1"))
	assert.False(t, b.DropOn(StatusBacklog))
	assert.Equal(t, StatusBacklog, statuses(b)["post-1"])
	assert.False(t, called)

	_, dragging := b.Dragging()
	assert.False(t, dragging)
}

func TestDropOn_BackwardAllowed(t *testing.T) {
	b := NewBoard(DemoPosts())
	require.True(t, b.BeginDrag("post-7"))
	assert.True(t, b.DropOn(StatusBacklog))
	assert.Equal(t, StatusBacklog, statuses(b)["post-7"])
}

func TestDropOn_InvalidStatusKeepsDrag(t *testing.T) {
	b := NewBoard(DemoPosts())
	require.True(t, b.BeginDrag("post-1"))

	assert.False(t, b.DropOn(Status("archived")))
	id, ok := b.Dragging()
	assert.True(t, ok)
	assert.Equal(t, "post-1", id)
}

func TestBeginDrag(t *testing.T) {
	b := NewBoard(DemoPosts())

	assert.False(t, b.BeginDrag("post-99"))
	_, ok := b.Dragging()
	assert.False(t, ok)

	require.True(t, b.BeginDrag("post-1"))
	require.True(t, b.BeginDrag("post-2"))
	id, _ := b.Dragging()
	assert.Equal(t, "post-2", id, "last drag wins")

	b.CancelDrag()
	assert.False(t, b.DropOn(StatusPosted))
	assert.Equal(t, StatusWriting, statuses(b)["post-2"])
}

func TestApprove_FromAnyColumn(t *testing.T) {
	for _, p := range DemoPosts() {
		t.Run(string(p.Status), func(t *testing.T) {
			b := NewBoard(DemoPosts())
			b.Approve(p.ID)
			assert.Equal(t, StatusScheduled, statuses(b)[p.ID])
		})
	}
}

func TestApprove_WarnsOutsideApproval(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	b := NewBoard(DemoPosts(), WithLogger(logger))

	b.Approve("post-5")
	assert.Empty(t, buf.String())

	b.Approve("post-1")
	assert.Contains(t, buf.String(), "outside client approval column")
	assert.Contains(t, buf.String(), "post_id=post-1")
}

func TestApprove_UnknownIDIsNoop(t *testing.T) {
	b := NewBoard(DemoPosts())
	before := b.Posts()
	assert.False(t, b.Approve("nope"))
	assert.Equal(t, before, b.Posts())
}

func TestRequestRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("feedback sends post to writing", func(t *testing.T) {
		sink := &recordingSink{}
		b := NewBoard(DemoPosts(), WithFeedbackSink(sink))

		ok, err := b.RequestRevision(ctx, "post-5", "  Use the brand blue  ")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, StatusWriting, statuses(b)["post-5"])
		assert.Equal(t, []string{"Use the brand blue"}, sink.notes["post-5"])
	})

	t.Run("empty feedback abandons", func(t *testing.T) {
		for _, fb := range []string{"", "   ", "\n\t"} {
			sink := &recordingSink{}
			b := NewBoard(DemoPosts(), WithFeedbackSink(sink))

			ok, err := b.RequestRevision(ctx, "post-5", fb)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, StatusApproval, statuses(b)["post-5"])
			assert.Empty(t, sink.notes)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		sink := &recordingSink{}
		b := NewBoard(DemoPosts(), WithFeedbackSink(sink))

		ok, err := b.RequestRevision(ctx, "post-42", "fix it")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, sink.notes)
	})

	t.Run("sink failure leaves status", func(t *testing.T) {
		b := NewBoard(DemoPosts(), WithFeedbackSink(&recordingSink{err: errors.New("db down")}))

		ok, err := b.RequestRevision(ctx, "post-5", "fix it")
		require.Error(t, err)
		assert.False(t, ok)
		assert.Equal(t, StatusApproval, statuses(b)["post-5"])
	})

	t.Run("without sink", func(t *testing.T) {
		b := NewBoard(DemoPosts())
		ok, err := b.RequestRevision(ctx, "post-2", "tone it down")
		require.NoError(t, err)
		assert.False(t, ok, "already in writing")
		assert.Equal(t, StatusWriting, statuses(b)["post-2"])
	})
}

func TestColumns_FixedOrderAndEmptyFlag(t *testing.T) {
	b := NewBoard(DemoPosts())

	cols := b.Columns()
	require.Len(t, cols, len(Statuses))
	for i, col := range cols {
		assert.Equal(t, Statuses[i], col.Status)
		assert.False(t, col.Empty)
	}
	assert.Equal(t, "Design / Creative", cols[2].Label)

	require.True(t, b.BeginDrag("post-1"))
	b.DropOn(StatusPosted)
	cols = b.Columns()
	assert.True(t, cols[0].Empty)
	assert.NotNil(t, cols[0].Posts)
	assert.Equal(t, []string{"post-1", "post-7"}, columnIDs(b, StatusPosted), "insertion order, not due date")
}

func TestColumns_EmptyBoard(t *testing.T) {
	cols := NewBoard(nil).Columns()
	require.Len(t, cols, 7)
	for _, col := range cols {
		assert.True(t, col.Empty)
	}
}

func TestSeed(t *testing.T) {
	b := NewBoard(DemoPosts())
	require.True(t, b.BeginDrag("post-1"))

	fresh := []Post{{ID: "a", Title: "A", Platform: PlatformFacebook, Status: StatusReview}}
	require.NoError(t, b.Seed(context.Background(), staticSource(fresh)))

	assert.Equal(t, fresh, b.Posts())
	_, dragging := b.Dragging()
	assert.False(t, dragging)

	err := b.Seed(context.Background(), failingSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading posts")
	assert.Equal(t, fresh, b.Posts())
}

func TestNewBoard_CopiesInput(t *testing.T) {
	posts := DemoPosts()
	b := NewBoard(posts)
	posts[0].Status = StatusPosted
	assert.Equal(t, StatusBacklog, statuses(b)["post-1"])
}

func TestPublishDue(t *testing.T) {
	var moves []Move
	b := NewBoard(DemoPosts(), WithOnMove(func(m Move) { moves = append(moves, m) }))
	b.Approve("post-5")

	ids := b.PublishDue(time.Date(2023, 10, 28, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"post-5"}, ids)

	st := statuses(b)
	assert.Equal(t, StatusPosted, st["post-5"])
	assert.Equal(t, StatusScheduled, st["post-6"], "due 2023-10-30")
	assert.Equal(t, ReasonPublish, moves[len(moves)-1].Reason)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("approval")
	require.NoError(t, err)
	assert.Equal(t, StatusApproval, s)

	_, err = ParseStatus("Approval")
	assert.Error(t, err)
}

func TestDemoPosts(t *testing.T) {
	posts := DemoPosts()
	require.Len(t, posts, 7)
	for i, p := range posts {
		assert.True(t, p.Platform.Valid(), p.ID)
		assert.Equal(t, Statuses[i], p.Status, "one starter post per column")
	}
	assert.Equal(t, "https://picsum.photos/id/20/200/200", posts[2].Thumbnail)
}
