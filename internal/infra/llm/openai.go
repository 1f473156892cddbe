package llm

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/pkg/utils/converter"
)

type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
}

func NewOpenAI(c config.LLMCfg, opts ...option.RequestOption) *OpenAI {
	base := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		base = append(base, option.WithBaseURL(c.BaseURL))
	}
	return &OpenAI{
		client:    openai.NewClient(append(base, opts...)...),
		model:     c.Model,
		maxTokens: maxTokens(c),
	}
}

func (o *OpenAI) Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error) {
	parts, err := converter.ToOpenAI(converter.Build(prompt, fileURLs...))
	if err != nil {
		return "", wrap("openai", err)
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", wrap("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", wrap("openai", ErrEmptyResponse)
	}
	return joinText([]string{resp.Choices[0].Message.Content})
}
