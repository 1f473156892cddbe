package converter

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// MessageFormat names a provider wire format.
type MessageFormat string

const (
	FormatOpenAI    MessageFormat = "openai"
	FormatAnthropic MessageFormat = "anthropic"
	FormatGemini    MessageFormat = "gemini"
)

func ParseFormat(s string) (MessageFormat, error) {
	switch f := MessageFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatOpenAI, FormatAnthropic, FormatGemini:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported message format: %s", s)
	}
}

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one piece of a single user turn sent to an inference backend.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	URL  string   `json:"url,omitempty"`
	MIME string   `json:"mime,omitempty"`
}

var ErrEmptyMessage = errors.New("message has no parts")

func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

// ImagePart references a stored image by URL. The MIME type is guessed from
// the URL path when not given, falling back to image/jpeg.
func ImagePart(url string) Part {
	return Part{Type: PartImage, URL: url, MIME: guessImageMIME(url)}
}

func guessImageMIME(u string) string {
	p := u
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}

// Build assembles the parts for a prompt plus any number of image references.
// Images come first so the instruction reads after the content it refers to.
func Build(prompt string, fileURLs ...string) []Part {
	parts := make([]Part, 0, len(fileURLs)+1)
	for _, u := range fileURLs {
		if strings.TrimSpace(u) == "" {
			continue
		}
		parts = append(parts, ImagePart(u))
	}
	return append(parts, TextPart(prompt))
}

// Validate checks that every part carries the field its type requires.
func Validate(parts []Part) error {
	if len(parts) == 0 {
		return ErrEmptyMessage
	}
	for i, p := range parts {
		switch p.Type {
		case PartText:
			if p.Text == "" {
				return fmt.Errorf("part %d: text part requires non-empty text field", i)
			}
		case PartImage:
			if p.URL == "" {
				return fmt.Errorf("part %d: image part requires url field", i)
			}
		default:
			return fmt.Errorf("part %d: unsupported part type: %s", i, p.Type)
		}
	}
	return nil
}
