// Package classify tags canonical records with domain relevance using an LLM.
// The pass is advisory: classification failures never block publication, the
// caller substitutes a not-relevant tag and moves on.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic/agents"

	"github.com/govharvest/bidsweep/internal/bid"
)

const systemPrompt = `You review municipal procurement bid listings for a flooring and
carpeting contractor. Decide whether the bid plausibly involves flooring,
carpeting, tile, or related surface installation work. Be strict: general
construction without explicit flooring scope is not relevant. Respond with
JSON only.`

const tagSchema = `{
  "type": "object",
  "properties": {
    "relevant": {"type": "boolean"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "rationale": {"type": "string"}
  },
  "required": ["relevant", "confidence"]
}`

// Config holds LLM settings.
type Config struct {
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// Classifier implements bid.Classifier on top of an Anthropic agent.
type Classifier struct {
	chat        func(prompt string, opts *agents.ChatOptions) (string, error)
	maxTokens   int
	temperature float64
}

// New builds a Classifier. The API key is required.
func New(cfg Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classify: api key is required")
	}
	agent, err := agents.New(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("classify: create agent: %w", err)
	}
	c := newWithChat(func(prompt string, opts *agents.ChatOptions) (string, error) {
		resp, err := agent.Chat(prompt, opts)
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	c.maxTokens = cfg.MaxTokens
	c.temperature = cfg.Temperature
	return c, nil
}

func newWithChat(chat func(string, *agents.ChatOptions) (string, error)) *Classifier {
	return &Classifier{chat: chat, maxTokens: 512}
}

// Classify tags one record. Errors mean the caller should fall back to a
// safe-negative tag; they never carry partial results.
func (c *Classifier) Classify(ctx context.Context, rec bid.Record) (bid.Tag, error) {
	if err := ctx.Err(); err != nil {
		return bid.Tag{}, err
	}

	prompt := fmt.Sprintf("Project: %s\nSummary: %s\nDue: %s\nLink: %s",
		rec.ProjectName, rec.Summary, rec.DueDate, rec.Link)

	text, err := c.chat(prompt, &agents.ChatOptions{
		SystemPrompt: systemPrompt,
		Schema:       tagSchema,
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
	})
	if err != nil {
		return bid.Tag{}, fmt.Errorf("classify %q: %w", rec.ProjectName, err)
	}

	var tag bid.Tag
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &tag); err != nil {
		return bid.Tag{}, fmt.Errorf("classify %q: parse response: %w", rec.ProjectName, err)
	}
	if tag.Confidence < 0 || tag.Confidence > 1 {
		return bid.Tag{}, fmt.Errorf("classify %q: confidence %v out of range", rec.ProjectName, tag.Confidence)
	}
	return tag, nil
}
