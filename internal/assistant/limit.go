package assistant

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// LimitedGenerator spaces calls to an upstream model so a burst of visitors
// cannot exhaust the API quota. Callers wait for a slot or give up with
// their context.
type LimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// NewLimitedGenerator allows perMinute calls per minute with a burst of a
// fifth of that. perMinute <= 0 returns next unchanged.
func NewLimitedGenerator(next Generator, perMinute int) Generator {
	if perMinute <= 0 || next == nil {
		return next
	}
	burst := max(perMinute/5, 1)
	return &LimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

func (g *LimitedGenerator) Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return g.next.Generate(ctx, prompt, schema)
}
