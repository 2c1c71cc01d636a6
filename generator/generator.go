package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"slideshow-server/config"
	"slideshow-server/core"
	"strings"

	"github.com/sirupsen/logrus"
)

// Text used when no credential is configured. No request is made in that case.
const (
	MissingKeyTitle       = "Happy birthday!"
	MissingKeyDescription = "A lovely photo from the event."
)

// New returns the generator selected by cfg.GeneratorProvider.
func New(ctx context.Context, cfg config.AppConfig) (core.ContentGenerator, error) {
	switch cfg.GeneratorProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logrus.Warn("OPENAI_API_KEY is not set, slides get fixed text")
			return unconfigured{}, nil
		}
		logrus.WithField("model", cfg.OpenAIModel).Info("Use OpenAI-compatible generator")
		return NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.GenerationPrompt), nil
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			logrus.Warn("GEMINI_API_KEY is not set, slides get fixed text")
			return unconfigured{}, nil
		}
		logrus.WithField("model", cfg.GeminiModel).Info("Use Gemini generator")
		gen, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerationPrompt)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "none":
		return unconfigured{}, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.GeneratorProvider)
	}
}

// unconfigured stands in when there is no credential.
type unconfigured struct{}

func (unconfigured) Generate(ctx context.Context, imageData string) (core.Content, error) {
	return core.Content{Title: MissingKeyTitle, Description: MissingKeyDescription}, nil
}

// parseContent reads the {"title", "description"} object a model returned.
func parseContent(text string) (core.Content, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(text, "```")), "```")

	var content core.Content
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return core.Content{}, fmt.Errorf("%w: invalid response JSON: %v", core.ErrGeneration, err)
	}
	content.Title = strings.TrimSpace(content.Title)
	content.Description = strings.TrimSpace(content.Description)
	if content.Title == "" && content.Description == "" {
		return core.Content{}, fmt.Errorf("%w: empty response", core.ErrGeneration)
	}
	return content, nil
}
