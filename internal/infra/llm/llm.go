// Package llm adapts the hosted inference providers to a single
// prompt-plus-images call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/pkg/utils/converter"
	"go.uber.org/zap"
)

var ErrEmptyResponse = errors.New("llm returned no text")

// Invoker sends one prompt, optionally with image references, and returns the
// model's text answer.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error)
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Invoker, error) {
	format, err := converter.ParseFormat(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("llm_provider", string(format)), zap.String("llm_model", cfg.LLM.Model))

	var inv Invoker
	switch format {
	case converter.FormatOpenAI:
		inv = NewOpenAI(cfg.LLM)
	case converter.FormatAnthropic:
		inv = NewAnthropic(cfg.LLM)
	case converter.FormatGemini:
		inv, err = NewGemini(ctx, cfg.LLM)
		if err != nil {
			return nil, err
		}
	}
	return &logged{next: inv, log: log, timeout: cfg.LLM.Timeout}, nil
}

type logged struct {
	next    Invoker
	log     *zap.Logger
	timeout time.Duration
}

func (l *logged) Invoke(ctx context.Context, prompt string, fileURLs ...string) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	out, err := l.next.Invoke(ctx, prompt, fileURLs...)
	if err != nil {
		l.log.Warn("llm invoke failed", zap.Int("files", len(fileURLs)), zap.Error(err))
		return "", err
	}
	l.log.Debug("llm invoke ok", zap.Int("files", len(fileURLs)), zap.Int("chars", len(out)))
	return out, nil
}

func joinText(chunks []string) (string, error) {
	out := strings.TrimSpace(strings.Join(chunks, ""))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func maxTokens(c config.LLMCfg) int64 {
	if c.MaxTokens <= 0 {
		return 1024
	}
	return int64(c.MaxTokens)
}

func wrap(provider string, err error) error {
	return fmt.Errorf("%s: %w", provider, err)
}
