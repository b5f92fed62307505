package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
	schema *genai.Schema
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, schema *genai.Schema) (string, error) {
	f.prompt = prompt
	f.schema = schema
	return f.reply, f.err
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("offline without generator", func(t *testing.T) {
		assert.Equal(t, ReplyOffline, New(nil, nil).Chat(ctx, "hi"))
	})

	t.Run("reply with preamble", func(t *testing.T) {
		gen := &fakeGenerator{reply: "We offer SEO packages."}
		got := New(gen, nil).Chat(ctx, "Do you do SEO?")

		assert.Equal(t, "We offer SEO packages.", got)
		assert.Contains(t, gen.prompt, "TarvizBot")
		assert.Contains(t, gen.prompt, "+91 74 7006 7003")
		assert.Contains(t, gen.prompt, "User Query: Do you do SEO?")
		assert.Nil(t, gen.schema)
	})

	t.Run("empty reply", func(t *testing.T) {
		assert.Equal(t, ReplyEmpty, New(&fakeGenerator{reply: "  "}, nil).Chat(ctx, "hi"))
	})

	t.Run("upstream failure", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("503")}
		assert.Equal(t, ReplyUnreachable, New(gen, nil).Chat(ctx, "hi"))
	})
}

func TestAuditSite(t *testing.T) {
	ctx := context.Background()

	t.Run("parses result", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"score":72,"summary":"Decent.","strengths":["a","b","c"],"weaknesses":["x","y","z"]}`}
		res, err := New(gen, nil).AuditSite(ctx, "example.com")
		require.NoError(t, err)

		assert.Equal(t, 72, res.Score)
		assert.Equal(t, "Decent.", res.Summary)
		assert.Len(t, res.Strengths, 3)
		assert.Len(t, res.Weaknesses, 3)
		assert.Contains(t, gen.prompt, "example.com")
		assert.Same(t, auditSchema, gen.schema)
	})

	t.Run("clamps score", func(t *testing.T) {
		for reply, want := range map[string]int{
			`{"score":140,"summary":"","strengths":[],"weaknesses":[]}`: 100,
			`{"score":-3,"summary":"","strengths":[],"weaknesses":[]}`:  0,
		} {
			res, err := New(&fakeGenerator{reply: reply}, nil).AuditSite(ctx, "example.com")
			require.NoError(t, err)
			assert.Equal(t, want, res.Score)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := New(nil, nil).AuditSite(ctx, "example.com")
		assert.ErrorIs(t, err, ErrUnavailable)

		_, err = New(&fakeGenerator{}, nil).AuditSite(ctx, " ")
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = New(&fakeGenerator{reply: ""}, nil).AuditSite(ctx, "example.com")
		assert.ErrorIs(t, err, ErrEmptyReply)

		_, err = New(&fakeGenerator{reply: "not json"}, nil).AuditSite(ctx, "example.com")
		assert.ErrorContains(t, err, "parsing model output")
	})
}

func TestSuggestBlogSEO(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"Local SEO","metaDescription":"Rank in Chennai.","keywords":["seo","chennai"]}`}
	res, err := New(gen, nil).SuggestBlogSEO(context.Background(), "Local SEO", "Small shops need maps listings")
	require.NoError(t, err)

	assert.Equal(t, "Local SEO", res.Title)
	assert.Equal(t, []string{"seo", "chennai"}, res.Keywords)
	assert.Contains(t, gen.prompt, `"Small shops need maps listings"`)
	assert.Same(t, blogSEOSchema, gen.schema)
}

func TestBlogOutline(t *testing.T) {
	ctx := context.Background()

	out, err := New(&fakeGenerator{reply: "# Outline"}, nil).BlogOutline(ctx, "Reels")
	require.NoError(t, err)
	assert.Equal(t, "# Outline", out)

	_, err = New(nil, nil).BlogOutline(ctx, "Reels")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = New(&fakeGenerator{err: errors.New("boom")}, nil).BlogOutline(ctx, "Reels")
	assert.Error(t, err)
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
