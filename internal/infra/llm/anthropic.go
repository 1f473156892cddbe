package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/pkg/utils/converter"
)

type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropic(c config.LLMCfg, opts ...option.RequestOption) *Anthropic {
	base := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		base = append(base, option.WithBaseURL(c.BaseURL))
	}
	return &Anthropic{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     c.Model,
		maxTokens: maxTokens(c),
	}
}

func (a *Anthropic) Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error) {
	blocks, err := converter.ToAnthropic(converter.Build(prompt, fileURLs...))
	if err != nil {
		return "", wrap("anthropic", err)
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", wrap("anthropic", err)
	}

	var chunks []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			chunks = append(chunks, block.Text)
		}
	}
	return joinText(chunks)
}
