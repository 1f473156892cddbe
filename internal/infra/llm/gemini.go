package llm

import (
	"context"
	"fmt"

	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/pkg/utils/converter"
	"google.golang.org/genai"
)

type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func NewGemini(ctx context.Context, c config.LLMCfg) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: c.Model, maxTokens: int32(maxTokens(c))}, nil
}

func (g *Gemini) Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error) {
	parts, err := converter.ToGemini(converter.Build(prompt, fileURLs...))
	if err != nil {
		return "", wrap("gemini", err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{MaxOutputTokens: g.maxTokens},
	)
	if err != nil {
		return "", wrap("gemini", err)
	}
	return joinText([]string{resp.Text()})
}
