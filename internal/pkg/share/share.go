package share

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled is returned by a Sharer when the user dismissed the share sheet.
var ErrCanceled = errors.New("share canceled")

var ErrClipboardUnavailable = errors.New("clipboard unavailable")

type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Sharer is the platform share capability.
type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

type Method string

const (
	MethodNative    Method = "native"
	MethodClipboard Method = "clipboard"
	MethodNone      Method = "none"
)

type Outcome struct {
	Method  Method  `json:"method"`
	Payload Payload `json:"payload"`
	Copied  string  `json:"copied,omitempty"`
	Notice  string  `json:"notice,omitempty"`
}

// Share hands the payload to the native capability, or copies the URL to the
// clipboard when there is none. A canceled native share is not an error and
// produces no notice.
func Share(ctx context.Context, p Payload, native Sharer, clip Clipboard) (Outcome, error) {
	if native != nil {
		err := native.Share(ctx, p)
		switch {
		case err == nil:
			return Outcome{Method: MethodNative, Payload: p, Notice: "Shared successfully"}, nil
		case errors.Is(err, ErrCanceled):
			return Outcome{Method: MethodNone, Payload: p}, nil
		default:
			return Outcome{Method: MethodNative, Payload: p, Notice: "Failed to share"}, fmt.Errorf("native share: %w", err)
		}
	}

	if clip == nil {
		return Outcome{Method: MethodClipboard, Payload: p, Notice: "Failed to share"}, ErrClipboardUnavailable
	}
	if err := clip.WriteText(ctx, p.URL); err != nil {
		return Outcome{Method: MethodClipboard, Payload: p, Notice: "Failed to share"}, fmt.Errorf("copy link: %w", err)
	}
	return Outcome{Method: MethodClipboard, Payload: p, Copied: p.URL, Notice: "Link copied to clipboard"}, nil
}

// Device share results relayed by the client.
const (
	ResultShared   = "shared"
	ResultCanceled = "canceled"
	ResultFailed   = "failed"
)

// Reported is a Sharer that replays the outcome the device already observed.
type Reported struct {
	Result string
}

func (r Reported) Share(context.Context, Payload) error {
	switch r.Result {
	case ResultShared:
		return nil
	case ResultCanceled:
		return ErrCanceled
	default:
		return fmt.Errorf("device share failed: %q", r.Result)
	}
}

// Recorder is a Clipboard that keeps the copied text so it can be returned to
// the device that performs the actual copy.
type Recorder struct {
	Text string
}

func (r *Recorder) WriteText(_ context.Context, text string) error {
	r.Text = text
	return nil
}
