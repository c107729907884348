// Package gemini provides the generate capability and web-grounded price research
// through the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"google.golang.org/genai"

	"nutribudget"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.2
	defaultMaxTokens   = 8192
)

const researchInstruction = "You research current grocery prices at real stores near the user's location using web search. Reply with a JSON array only."

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int32
}

type Client struct {
	models contentGenerator
	opts   Options
}

// New creates a client for the Gemini API. The API key is read from GEMINI_API_KEY or
// GOOGLE_API_KEY by the genai package.
func New(ctx context.Context, opts Options) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return NewClient(cli.Models, opts), nil
}

func NewClient(models contentGenerator, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &Client{models: models, opts: opts}
}

// Generate asks for JSON output when shape is non-nil; the schema itself travels in the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error) {
	cfg := c.config()
	if shape != nil {
		b, err := json.Marshal(shape)
		if err != nil {
			return "", fmt.Errorf("gemini: marshal schema: %w", err)
		}
		cfg.ResponseMIMEType = "application/json"
		prompt += "\n\nThe response must match this JSON schema:\n" + string(b)
	}
	return c.generate(ctx, prompt, cfg)
}

// Research answers with Google Search grounding enabled.
func (c *Client) Research(ctx context.Context, query string) (string, error) {
	cfg := c.config()
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: researchInstruction}}}
	cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	return c.generate(ctx, query, cfg)
}

func (c *Client) config() *genai.GenerateContentConfig {
	temp := c.opts.Temperature
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.opts.MaxTokens,
	}
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", "gemini", "model", c.opts.Model, "prompt_len", len(prompt), "grounded", len(cfg.Tools) > 0)

	resp, err := c.models.GenerateContent(ctx, c.opts.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		slog.Error("LLM_CLIENT: Gemini invoke failed", "error", err)
		return "", fmt.Errorf("%w: gemini: %v", nutribudget.ErrCapabilityUnavailable, err)
	}

	text := textFromResponse(resp)
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned no text", nutribudget.ErrCapabilityUnavailable)
	}
	slog.Info("LLM_CLIENT: Response received", "provider", "gemini", "content_len", len(text))
	return text, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
