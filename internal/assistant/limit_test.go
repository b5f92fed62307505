package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimitedGenerator_Disabled(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	assert.Same(t, gen, NewLimitedGenerator(gen, 0))
	assert.Nil(t, NewLimitedGenerator(nil, 60))
}

func TestLimitedGenerator_WaitsForSlot(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	limited := NewLimitedGenerator(gen, 1) // one call per minute, burst 1

	out, err := limited.Generate(context.Background(), "first", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, "second", nil)
	assert.Error(t, err, "second call cannot get a slot before the deadline")
	assert.Equal(t, "first", gen.prompt)
}

func TestLimitedGenerator_OfflineAssistant(t *testing.T) {
	a := New(NewLimitedGenerator(nil, 30), nil)
	assert.False(t, a.Available())
}
