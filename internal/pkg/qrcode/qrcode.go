package qrcode

import (
	"net/url"
	"regexp"
)

const DefaultServiceURL = "https://api.qrserver.com/v1/create-qr-code/"

var whitespace = regexp.MustCompile(`\s+`)

type Renderer struct {
	serviceURL string
	size       string
}

func NewRenderer(serviceURL, size string) *Renderer {
	if serviceURL == "" {
		serviceURL = DefaultServiceURL
	}
	if size == "" {
		size = "400x400"
	}
	return &Renderer{serviceURL: serviceURL, size: size}
}

// RenderURL returns the image URL that encodes target as a QR code.
func (r *Renderer) RenderURL(target string) string {
	return r.serviceURL + "?size=" + r.size + "&data=" + url.QueryEscape(target)
}

// DownloadFilename is the attachment name offered when saving the QR image.
func DownloadFilename(artifactName string) string {
	if artifactName == "" {
		return "artifact_qrcode.png"
	}
	return "artifact_" + whitespace.ReplaceAllString(artifactName, "_") + ".png"
}
