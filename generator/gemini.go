package generator

import (
	"context"
	"fmt"
	"slideshow-server/core"

	"google.golang.org/genai"
)

type geminiGenerator struct {
	client *genai.Client
	model  string
	prompt string
}

// NewGemini creates a generator backed by the Gemini API. baseURL overrides the API
// endpoint and may be empty.
func NewGemini(ctx context.Context, apiKey, model, prompt string, baseURL ...string) (*geminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if len(baseURL) > 0 && baseURL[0] != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL[0]}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiGenerator{client: client, model: model, prompt: prompt}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, imageData string) (core.Content, error) {
	mimeType, data, err := decodeImage(imageData)
	if err != nil {
		return core.Content{}, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(g.prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   contentSchema,
	})
	if err != nil {
		return core.Content{}, fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}

	return parseContent(resp.Text())
}

var contentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
	},
	Required: []string{"title", "description"},
}
