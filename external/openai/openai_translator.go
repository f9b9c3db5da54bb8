package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/foxseedlab/tsuyaku/internal/translator"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

type Translator struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewTranslator(cfg Config) *Translator {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &Translator{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (t *Translator) Translate(ctx context.Context, req translator.Request) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: translator.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: translator.BuildPrompt(req)},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translation backend returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
