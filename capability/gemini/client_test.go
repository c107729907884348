package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"nutribudget"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func response(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(&fakeModels{}, Options{})
	assert.Equal(t, Options{Model: defaultModel, Temperature: defaultTemperature, MaxTokens: defaultMaxTokens}, c.opts)
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name     string
		shape    *jsonschema.Schema
		resp     *genai.GenerateContentResponse
		err      error
		want     string
		wantErr  bool
		wantMIME string
	}{
		{
			name:     "structured",
			shape:    &jsonschema.Schema{Type: "object", Title: "meal_plan"},
			resp:     response(&genai.Part{Text: `{"days":`}, &genai.Part{Text: `[]}`}),
			want:     `{"days":[]}`,
			wantMIME: "application/json",
		},
		{
			name: "thoughts skipped",
			resp: response(&genai.Part{Text: "thinking...", Thought: true}, &genai.Part{Text: "Use frozen spinach."}),
			want: "Use frozen spinach.",
		},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{name: "api error", err: errors.New("quota exceeded"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{resp: tt.resp, err: tt.err}
			c := NewClient(models, Options{Model: "gemini-test"})

			got, err := c.Generate(context.Background(), "plan my week", tt.shape)
			if tt.wantErr {
				assert.ErrorIs(t, err, nutribudget.ErrCapabilityUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "gemini-test", models.model)
			assert.Equal(t, tt.wantMIME, models.config.ResponseMIMEType)
			assert.Empty(t, models.config.Tools)

			prompt := models.contents[0].Parts[0].Text
			if tt.shape != nil {
				assert.Contains(t, prompt, `"title":"meal_plan"`)
			} else {
				assert.Equal(t, "plan my week", prompt)
			}
		})
	}
}

func TestClient_ResearchUsesSearch(t *testing.T) {
	models := &fakeModels{resp: response(&genai.Part{Text: `[{"name":"Eggs","price":3.49}]`})}
	c := NewClient(models, Options{})

	got, err := c.Research(context.Background(), "grocery prices in Chicago")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Eggs","price":3.49}]`, got)

	require.Len(t, models.config.Tools, 1)
	assert.NotNil(t, models.config.Tools[0].GoogleSearch)
	assert.Empty(t, models.config.ResponseMIMEType)
	require.NotNil(t, models.config.SystemInstruction)
	assert.Equal(t, researchInstruction, models.config.SystemInstruction.Parts[0].Text)
}
