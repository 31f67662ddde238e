package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/ports"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	defaultInstructions = "You write a short overview of an AI research briefing."
	// promptItems caps how many items per category are listed in the prompt.
	promptItems = 10
)

// ErrEmptyOverview is returned when the model produced no text.
var ErrEmptyOverview = errors.New("empty overview")

type responsesClient interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// OverviewClient writes the briefing overview through the OpenAI Responses API.
type OverviewClient struct {
	responses    responsesClient
	model        string
	instructions string
	timeout      time.Duration
}

var _ ports.Overviewer = (*OverviewClient)(nil)

// NewOverviewClient builds a client from configuration.
func NewOverviewClient(cfg config.LLMConfig) (*OverviewClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm config: missing apiKey")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("llm config: missing model")
	}

	options := make([]option.RequestOption, 0, 3)
	options = append(options, option.WithAPIKey(cfg.APIKey))
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		options = append(options, option.WithMaxRetries(cfg.MaxRetries))
	}
	client := openai.NewClient(options...)

	return newOverviewClient(&client.Responses, cfg), nil
}

func newOverviewClient(rc responsesClient, cfg config.LLMConfig) *OverviewClient {
	instructions := strings.TrimSpace(cfg.Instructions)
	if instructions == "" {
		instructions = defaultInstructions
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &OverviewClient{
		responses:    rc,
		model:        strings.TrimSpace(cfg.Model),
		instructions: instructions,
		timeout:      timeout,
	}
}

// Overview asks the model for a paragraph summarising digest.
func (c *OverviewClient) Overview(ctx context.Context, digest domain.Digest) (string, error) {
	if digest.Empty() {
		return "", ErrEmptyOverview
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.responses.New(ctx, responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(c.instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(BuildPrompt(digest)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create response: %w", err)
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", ErrEmptyOverview
	}
	return text, nil
}

// BuildPrompt lists the digest items the model should summarise.
func BuildPrompt(d domain.Digest) string {
	var sb strings.Builder
	sb.WriteString("Today's briefing contains:\n")

	if len(d.Posts) > 0 {
		fmt.Fprintf(&sb, "\nBlog posts (%d):\n", len(d.Posts))
		for _, p := range d.Posts[:min(promptItems, len(d.Posts))] {
			fmt.Fprintf(&sb, "- [%s] %s\n", p.Source, p.Title)
		}
	}
	if len(d.Papers) > 0 {
		fmt.Fprintf(&sb, "\narXiv papers (%d):\n", len(d.Papers))
		for _, p := range d.Papers[:min(promptItems, len(d.Papers))] {
			fmt.Fprintf(&sb, "- %s (%s)\n", p.Title, strings.Join(p.MatchedKeywords, ", "))
		}
	}
	if len(d.Linked) > 0 {
		fmt.Fprintf(&sb, "\nPapers announced on blogs (%d):\n", len(d.Linked))
		for _, l := range d.Linked[:min(promptItems, len(d.Linked))] {
			fmt.Fprintf(&sb, "- %s (via %s)\n", l.Paper.Title, l.Link.BlogSource)
		}
	}
	if len(d.SafetyPosts) > 0 {
		fmt.Fprintf(&sb, "\nSafety posts (%d):\n", len(d.SafetyPosts))
		for _, p := range d.SafetyPosts[:min(promptItems, len(d.SafetyPosts))] {
			fmt.Fprintf(&sb, "- [%s] %s\n", p.Source, p.Title)
		}
	}
	return sb.String()
}
