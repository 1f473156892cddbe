package llm

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type Prompts struct {
	ExtractText string `yaml:"extract_text"`
	Describe    string `yaml:"describe"`
	Assistant   string `yaml:"assistant"`

	assistant *template.Template
}

// AssistantInput is rendered into the assistant template. Artifacts and Notes
// are already serialized snapshots.
type AssistantInput struct {
	Artifacts string
	Notes     string
	Question  string
}

func LoadPrompts() (*Prompts, error) {
	return ParsePrompts(promptsYAML)
}

func ParsePrompts(raw []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	p.ExtractText = strings.TrimSpace(p.ExtractText)
	p.Describe = strings.TrimSpace(p.Describe)
	if p.ExtractText == "" || p.Describe == "" || p.Assistant == "" {
		return nil, errors.New("prompts: extract_text, describe and assistant are required")
	}
	tpl, err := template.New("assistant").Option("missingkey=error").Parse(p.Assistant)
	if err != nil {
		return nil, fmt.Errorf("parse assistant prompt: %w", err)
	}
	p.assistant = tpl
	return &p, nil
}

func (p *Prompts) RenderAssistant(in AssistantInput) (string, error) {
	var b strings.Builder
	if err := p.assistant.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render assistant prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
