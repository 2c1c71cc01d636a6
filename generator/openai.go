package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slideshow-server/core"
	"strings"
	"time"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type LiteralType string

const (
	LiteralTypeText     LiteralType = "text"
	LiteralTypeImageURL LiteralType = "image_url"
)

// UserTextContentPart corresponds to a part of a multi-part message with text.
type UserTextContentPart struct {
	Type LiteralType `json:"type"`
	Text string      `json:"text"`
}

// ImageURL details the URL and detail level of an image.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// UserImageContentPart corresponds to a part of a multi-part message with an image.
type UserImageContentPart struct {
	Type     LiteralType `json:"type"`
	ImageURL ImageURL    `json:"image_url"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type openAIGenerator struct {
	client  httpDoer
	baseURL string
	apiKey  string
	model   string
	prompt  string
}

// NewOpenAI creates a generator for any OpenAI-compatible chat completions endpoint.
func NewOpenAI(baseURL, apiKey, model, prompt string) *openAIGenerator {
	return &openAIGenerator{
		client:  &http.Client{Timeout: 2 * time.Minute},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		prompt:  prompt,
	}
}

// SetHTTPClient replaces the HTTP client, mostly for tests.
func (g *openAIGenerator) SetHTTPClient(client httpDoer) {
	g.client = client
}

func (g *openAIGenerator) Generate(ctx context.Context, imageData string) (core.Content, error) {
	maxTokens := 300
	payload := ChatCompletionRequest{
		Model: g.model,
		Messages: []ChatMessage{{
			Role: "user",
			Content: []any{
				UserTextContentPart{Type: LiteralTypeText, Text: g.prompt},
				UserImageContentPart{Type: LiteralTypeImageURL, ImageURL: ImageURL{URL: imageData}},
			},
		}},
		MaxTokens:      &maxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.Content{}, fmt.Errorf("%w: failed to build request: %v", core.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return core.Content{}, fmt.Errorf("%w: failed to create request: %v", core.ErrGeneration, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return core.Content{}, fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.Content{}, fmt.Errorf("%w: failed to read response: %v", core.ErrGeneration, err)
	}

	var completion ChatCompletionResponse
	jsonErr := json.Unmarshal(respBody, &completion)
	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(completion.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return core.Content{}, fmt.Errorf("%w: %s", core.ErrGeneration, msg)
	}
	if jsonErr != nil {
		return core.Content{}, fmt.Errorf("%w: invalid response: %v", core.ErrGeneration, jsonErr)
	}
	if len(completion.Choices) == 0 {
		return core.Content{}, fmt.Errorf("%w: no choices returned", core.ErrGeneration)
	}

	return parseContent(completion.Choices[0].Message.Content)
}
