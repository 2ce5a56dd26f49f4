package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	genai "google.golang.org/genai"

	"cigate/internal/check"
)

const defaultModel = "gemini-2.0-flash"

// Summarizer produces a short human summary of failing check output for
// the top of the gate comment. It is strictly optional: callers treat
// any error as "no summary".
type Summarizer interface {
	Summarize(ctx context.Context, results []check.Result) (string, error)
}

// GeminiSummarizer is a thin wrapper around the official genai client.
type GeminiSummarizer struct {
	cli   *genai.Client
	model string
}

// NewGeminiFromEnv returns nil (no summarizer) when GEMINI_API_KEY is
// not set.
func NewGeminiFromEnv(ctx context.Context) (*GeminiSummarizer, error) {
	if strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) == "" {
		return nil, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = defaultModel
	}
	return &GeminiSummarizer{cli: cli, model: model}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, results []check.Result) (string, error) {
	if g == nil || g.cli == nil {
		return "", fmt.Errorf("summarizer is not configured")
	}
	var failing []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		failing = append(failing, fmt.Sprintf("[%s]\n%s", r.Kind.Title(), r.Output))
	}
	if len(failing) == 0 {
		return "", nil
	}

	prompt := "Summarize the following failing CI check output in at most three plain sentences. " +
		"Name the failing checks and the most likely cause. No markdown, no preamble.\n\n" +
		strings.Join(failing, "\n\n")

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty summary from model")
	}
	return text, nil
}
