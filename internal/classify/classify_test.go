package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/aktagon/llmkit/anthropic/agents"
	"github.com/stretchr/testify/require"

	"github.com/govharvest/bidsweep/internal/bid"
)

var flooringBid = bid.Record{
	ProjectName: "Gymnasium Floor Replacement",
	Summary:     "Remove and replace hardwood flooring at the community gym.",
	Link:        "https://example.gov/bid/1",
}

func TestClassify_ParsesTag(t *testing.T) {
	t.Parallel()
	var gotPrompt string
	c := newWithChat(func(prompt string, opts *agents.ChatOptions) (string, error) {
		gotPrompt = prompt
		require.NotEmpty(t, opts.SystemPrompt)
		require.NotEmpty(t, opts.Schema)
		return `{"relevant": true, "confidence": 0.92, "rationale": "explicit flooring scope"}`, nil
	})

	tag, err := c.Classify(context.Background(), flooringBid)
	require.NoError(t, err)
	require.True(t, tag.Relevant)
	require.InDelta(t, 0.92, tag.Confidence, 1e-9)
	require.Contains(t, gotPrompt, "Gymnasium Floor Replacement")
}

func TestClassify_ChatErrorSurfaces(t *testing.T) {
	t.Parallel()
	boom := errors.New("rate limited")
	c := newWithChat(func(string, *agents.ChatOptions) (string, error) { return "", boom })

	_, err := c.Classify(context.Background(), flooringBid)
	require.ErrorIs(t, err, boom)
}

func TestClassify_MalformedResponseIsError(t *testing.T) {
	t.Parallel()
	c := newWithChat(func(string, *agents.ChatOptions) (string, error) {
		return "definitely relevant!", nil
	})
	_, err := c.Classify(context.Background(), flooringBid)
	require.Error(t, err)

	c = newWithChat(func(string, *agents.ChatOptions) (string, error) {
		return `{"relevant": true, "confidence": 7}`, nil
	})
	_, err = c.Classify(context.Background(), flooringBid)
	require.Error(t, err)
}

func TestClassify_CancelledContext(t *testing.T) {
	t.Parallel()
	c := newWithChat(func(string, *agents.ChatOptions) (string, error) {
		t.Fatal("chat must not be called")
		return "", nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Classify(ctx, flooringBid)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()
	_, err := New(Config{})
	require.Error(t, err)
}
