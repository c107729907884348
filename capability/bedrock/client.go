// Package bedrock provides the generate and research capabilities through the Amazon
// Bedrock Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutribudget"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A full week of meals needs more room than a chat reply.
	defaultMaxTokens = 4096

	defaultTemperature = 0.2
	defaultTopP        = 0.9
)

const generateSystemPrompt = "You are the planning engine of NutriBudget, a budget meal planner. Follow the instructions exactly."

const researchSystemPrompt = "You estimate typical current grocery prices at stores near a given location. Answer with a JSON array only, using your best estimates."

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewClient(brc bedrockRuntimeClient, opts LLMOptions) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{
		brc:  brc,
		opts: opts,
	}
}

// Generate sends prompt as a single user turn. Converse has no structured output mode,
// so a non-nil shape is appended to the system prompt.
func (c *Client) Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error) {
	system := generateSystemPrompt
	if shape != nil {
		b, err := json.Marshal(shape)
		if err != nil {
			return "", fmt.Errorf("bedrock: marshal schema: %w", err)
		}
		system += "\nRespond with a single JSON object and nothing else. It must match this JSON schema:\n" + string(b)
	}
	return c.converse(ctx, system, prompt)
}

func (c *Client) Research(ctx context.Context, query string) (string, error) {
	return c.converse(ctx, researchSystemPrompt, query)
}

func (c *Client) converse(ctx context.Context, system, prompt string) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", "bedrock", "model", c.opts.ModelID, "prompt_len", len(prompt))

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}
	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model", c.opts.ModelID)
		return "", fmt.Errorf("%w: bedrock: %v", nutribudget.ErrCapabilityUnavailable, err)
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case "max_tokens":
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; consider increasing MaxTokens")
		return "", fmt.Errorf("%w: model hit MaxTokens limit", nutribudget.ErrCapabilityUnavailable)

	case "guardrail_intervened", "content_filtered":
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return "", fmt.Errorf("%w: model response blocked by safety filters", nutribudget.ErrCapabilityUnavailable)
	}

	text := textFromOutput(out)
	if text == "" {
		return "", fmt.Errorf("%w: bedrock returned no text", nutribudget.ErrCapabilityUnavailable)
	}
	return text, nil
}

// textFromOutput returns the assistant's text. When several text blocks are present and
// one of them is a JSON object, the last such block wins; otherwise blocks are joined.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && strings.TrimSpace(t.Value) != "" {
			texts = append(texts, strings.TrimSpace(t.Value))
		}
	}
	if len(texts) == 0 {
		return ""
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := texts[i]
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s
		}
	}
	return strings.Join(texts, "\n")
}
