package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/api/handlers"
	"github.com/hugh/tarviz/internal/assistant"
	"github.com/hugh/tarviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ *genai.Schema) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func setupAssistantTestRouter(gen assistant.Generator) *chi.Mux {
	handler := handlers.NewAssistantHandler(assistant.New(gen, testutil.Logger()))

	r := chi.NewRouter()
	r.Post("/chat", handler.Chat)
	r.Post("/seo-audit", handler.AuditSite)
	r.Post("/blog/seo", handler.BlogSEO)
	r.Post("/blog/outline", handler.BlogOutline)
	return r
}

func TestAssistantHandler_Chat(t *testing.T) {
	tests := []struct {
		name      string
		gen       assistant.Generator
		body      map[string]interface{}
		wantCode  int
		wantReply string
	}{
		{
			name:      "model answers",
			gen:       &stubGenerator{reply: "We offer SEO packages."},
			body:      map[string]interface{}{"message": "What do you offer?"},
			wantCode:  http.StatusOK,
			wantReply: "We offer SEO packages.",
		},
		{
			name:      "no api key",
			gen:       nil,
			body:      map[string]interface{}{"message": "hello"},
			wantCode:  http.StatusOK,
			wantReply: assistant.ReplyOffline,
		},
		{
			name:      "model error",
			gen:       &stubGenerator{err: errors.New("boom")},
			body:      map[string]interface{}{"message": "hello"},
			wantCode:  http.StatusOK,
			wantReply: assistant.ReplyUnreachable,
		},
		{
			name:     "blank message",
			gen:      &stubGenerator{reply: "x"},
			body:     map[string]interface{}{"message": "  "},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAssistantTestRouter(tt.gen)
			rr := serve(t, router, http.MethodPost, "/chat", tt.body, "")
			testutil.AssertStatus(t, rr, tt.wantCode)
			if tt.wantCode == http.StatusOK {
				var resp dto.ChatResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.Equal(t, tt.wantReply, resp.Reply)
			}
		})
	}
}

func TestAssistantHandler_AuditSite(t *testing.T) {
	gen := &stubGenerator{reply: `{"score":140,"summary":"Decent.","strengths":["a","b","c"],"weaknesses":["x","y","z"]}`}
	router := setupAssistantTestRouter(gen)

	rr := serve(t, router, http.MethodPost, "/seo-audit", map[string]interface{}{"url": "https://chennaibakes.example.com"}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var res assistant.AuditResult
	testutil.ParseJSONResponse(t, rr, &res)
	assert.Equal(t, 100, res.Score)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "https://chennaibakes.example.com")

	rr = serve(t, router, http.MethodPost, "/seo-audit", map[string]interface{}{"url": "not a url"}, "")
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	offline := setupAssistantTestRouter(nil)
	rr = serve(t, offline, http.MethodPost, "/seo-audit", map[string]interface{}{"url": "https://example.com"}, "")
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	broken := setupAssistantTestRouter(&stubGenerator{reply: "not json"})
	rr = serve(t, broken, http.MethodPost, "/seo-audit", map[string]interface{}{"url": "https://example.com"}, "")
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
}

func TestAssistantHandler_Blog(t *testing.T) {
	seo := setupAssistantTestRouter(&stubGenerator{
		reply: `{"title":"10 Reel Ideas","metaDescription":"Ideas for reels.","keywords":["reels","instagram"]}`,
	})
	rr := serve(t, seo, http.MethodPost, "/blog/seo", map[string]interface{}{"topic": "Instagram reels", "snippet": "Reels reach..."}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)
	var suggestion assistant.SEOSuggestion
	testutil.ParseJSONResponse(t, rr, &suggestion)
	assert.Equal(t, "10 Reel Ideas", suggestion.Title)

	rr = serve(t, seo, http.MethodPost, "/blog/seo", map[string]interface{}{"topic": ""}, "")
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	outline := setupAssistantTestRouter(&stubGenerator{reply: "# Outline\n\n## Intro"})
	rr = serve(t, outline, http.MethodPost, "/blog/outline", map[string]interface{}{"topic": "Local SEO"}, "")
	testutil.AssertStatus(t, rr, http.StatusOK)
	var out dto.OutlineResponse
	testutil.ParseJSONResponse(t, rr, &out)
	assert.Equal(t, "# Outline\n\n## Intro", out.Markdown)

	empty := setupAssistantTestRouter(&stubGenerator{reply: "  "})
	rr = serve(t, empty, http.MethodPost, "/blog/outline", map[string]interface{}{"topic": "Local SEO"}, "")
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
}
