package converter

import (
	"github.com/openai/openai-go/v3"
)

// ToOpenAI converts parts into chat completion content parts.
func ToOpenAI(parts []Part) ([]openai.ChatCompletionContentPartUnionParam, error) {
	if err := Validate(parts); err != nil {
		return nil, err
	}
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			out = append(out, openai.TextContentPart(p.Text))
		case PartImage:
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: p.URL,
			}))
		}
	}
	return out, nil
}
