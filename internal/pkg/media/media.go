// Package media turns a picked photo into the inline preview shown before upload.
package media

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Photo struct {
	Filename string
	MIME     string
	Ext      string
	Data     []byte
}

// NewPhoto sniffs the content type of data; the declared type from the picker is ignored.
func NewPhoto(filename string, data []byte) *Photo {
	m := mimetype.Detect(data)
	return &Photo{
		Filename: filename,
		MIME:     m.String(),
		Ext:      m.Extension(),
		Data:     data,
	}
}

// IsImage reports whether the sniffed type is an image/* type.
func (p *Photo) IsImage() bool {
	return strings.HasPrefix(p.MIME, "image/")
}

// PreviewDataURI encodes the photo as a data URI for local display.
func (p *Photo) PreviewDataURI() string {
	mime := p.MIME
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}
