// Package ollama provides the generate and research capabilities on top of a local
// Ollama server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutribudget"
)

const (
	defaultTemperature = 0.2
	defaultTopP        = 0.9
	defaultNumCtx      = 16384
)

const generateSystemPrompt = "You are the planning engine of NutriBudget, a budget meal planner. Follow the instructions exactly and answer with JSON only when JSON is requested."

// Local models cannot browse, so research answers come from the model's own knowledge.
const researchSystemPrompt = "You estimate typical current grocery prices at stores near a given location. Answer with a JSON array only, using your best estimates."

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient nutribudget.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	Temperature  float64
	TopP         float64
	HTTPClient   nutribudget.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseEndpoint == "" {
		return nil, fmt.Errorf("ollama: base endpoint is required")
	}
	if opts.ModelID == "" {
		return nil, fmt.Errorf("ollama: model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimSuffix(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        defaultNumCtx,
		},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string          `json:"model"`
	Messages []message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  options         `json:"options,omitempty"`
}

type wireResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

// Generate sends prompt as a single user turn. A non-nil shape is passed as the
// structured output format.
func (c *Client) Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error) {
	var format json.RawMessage
	if shape != nil {
		b, err := json.Marshal(shape)
		if err != nil {
			return "", fmt.Errorf("ollama: marshal format: %w", err)
		}
		format = b
	}
	return c.chat(ctx, generateSystemPrompt, prompt, format)
}

func (c *Client) Research(ctx context.Context, query string) (string, error) {
	return c.chat(ctx, researchSystemPrompt, query, nil)
}

func (c *Client) chat(ctx context.Context, system, prompt string, format json.RawMessage) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", "ollama", "model", c.model, "prompt_len", len(prompt), "structured", format != nil)

	reqBytes, err := json.Marshal(wireRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Format:  format,
		Options: c.options,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", nutribudget.ErrCapabilityUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama %s: %s", nutribudget.ErrCapabilityUnavailable, resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body_len", len(body))
		return string(body), nil
	}
	content := strings.TrimSpace(wr.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: ollama returned an empty message", nutribudget.ErrCapabilityUnavailable)
	}

	slog.Info("LLM_CLIENT: Response received", "provider", "ollama", "content_len", len(content))
	return content, nil
}
