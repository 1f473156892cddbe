package converter

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// ToAnthropic converts parts into message content blocks. Images are passed
// by URL source; Anthropic fetches them itself.
func ToAnthropic(parts []Part) ([]anthropic.ContentBlockParamUnion, error) {
	if err := Validate(parts); err != nil {
		return nil, err
	}
	out := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			out = append(out, anthropic.NewTextBlock(p.Text))
		case PartImage:
			out = append(out, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: p.URL}))
		}
	}
	return out, nil
}
