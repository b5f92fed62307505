// Package assistant is the AI chat and SEO helper shown on the marketing
// site and in the client dashboard.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Replies used when the model cannot answer.
const (
	ReplyOffline     = "I'm sorry, my brain (API Key) is currently offline. Please try again later."
	ReplyEmpty       = "I didn't catch that. Could you rephrase?"
	ReplyUnreachable = "I'm having trouble connecting to the server right now."
)

var (
	ErrUnavailable = errors.New("assistant unavailable: no API key configured")
	ErrEmptyInput  = errors.New("input is empty")
	ErrEmptyReply  = errors.New("model returned an empty reply")
)

// Generator produces text for a prompt. A non-nil schema asks for JSON
// matching it.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

type AuditResult struct {
	Score      int      `json:"score"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

type SEOSuggestion struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

type Assistant struct {
	gen    Generator
	logger *slog.Logger
}

// New returns an assistant; a nil gen yields one that is offline.
func New(gen Generator, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{gen: gen, logger: logger}
}

func (a *Assistant) Available() bool {
	return a.gen != nil
}

const chatPreamble = `You are "TarvizBot", the helpful AI assistant for Tarviz Digimart, a digital marketing agency in Chennai.
Services: Social Media, SEO, Web Design, Graphic Design, E-commerce Management.
Tone: Professional, friendly, and persuasive.
Goal: Help users find services or get a quote.
Address: Chennai, Tamil Nadu.
Phone: +91 74 7006 7003.
Email: info@tarvizdigimart.com.

User Query: `

// Chat always returns something to show; failures become canned replies.
func (a *Assistant) Chat(ctx context.Context, message string) string {
	if !a.Available() {
		return ReplyOffline
	}

	reply, err := a.gen.Generate(ctx, chatPreamble+message, nil)
	if err != nil {
		a.logger.Error("assistant chat failed", "error", err)
		return ReplyUnreachable
	}
	if strings.TrimSpace(reply) == "" {
		return ReplyEmpty
	}
	return reply
}

// AuditSite produces a simulated SEO audit for url. The model cannot fetch
// the site; it infers from the domain.
func (a *Assistant) AuditSite(ctx context.Context, url string) (*AuditResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyInput
	}

	prompt := fmt.Sprintf(`Analyze the potential SEO status for the website: %s.
Since you cannot access the live web, simulate a realistic audit based on the domain name industry and common web pitfalls for this type of business.
Return a JSON with:
- score (integer 0-100)
- summary (string, 2 sentences)
- strengths (array of 3 strings)
- weaknesses (array of 3 strings)`, url)

	var res AuditResult
	if err := a.generateJSON(ctx, prompt, auditSchema, &res); err != nil {
		return nil, err
	}

	res.Score = min(max(res.Score, 0), 100)
	return &res, nil
}

func (a *Assistant) SuggestBlogSEO(ctx context.Context, topic, snippet string) (*SEOSuggestion, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyInput
	}

	prompt := fmt.Sprintf(`Generate SEO metadata for a blog post about %q.
Here is a snippet of the content: %q.
Return a title, a meta description (max 160 chars), and a list of 5 SEO keywords.`, topic, snippet)

	var res SEOSuggestion
	if err := a.generateJSON(ctx, prompt, blogSEOSchema, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BlogOutline returns a markdown outline for topic.
func (a *Assistant) BlogOutline(ctx context.Context, topic string) (string, error) {
	if !a.Available() {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyInput
	}

	prompt := fmt.Sprintf(`Create a comprehensive blog post outline for the topic: %q.
Target audience: Small business owners looking for digital marketing advice.
Format: Markdown.`, topic)

	out, err := a.gen.Generate(ctx, prompt, nil)
	if err != nil {
		a.logger.Error("assistant outline failed", "error", err)
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}

func (a *Assistant) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, dst any) error {
	if !a.Available() {
		return ErrUnavailable
	}

	text, err := a.gen.Generate(ctx, prompt, schema)
	if err != nil {
		a.logger.Error("assistant request failed", "error", err)
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyReply
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("parsing model output: %w", err)
	}
	return nil
}
