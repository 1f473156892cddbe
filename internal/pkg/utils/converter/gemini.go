package converter

import (
	"google.golang.org/genai"
)

func ToGemini(parts []Part) ([]*genai.Part, error) {
	if err := Validate(parts); err != nil {
		return nil, err
	}
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			out = append(out, genai.NewPartFromText(p.Text))
		case PartImage:
			out = append(out, genai.NewPartFromURI(p.URL, p.MIME))
		}
	}
	return out, nil
}
