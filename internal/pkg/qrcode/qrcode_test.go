package qrcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_RenderURL(t *testing.T) {
	r := NewRenderer("", "")
	got := r.RenderURL("https://app.example/ArtifactView?id=42&x=a b")
	assert.Equal(t,
		"https://api.qrserver.com/v1/create-qr-code/?size=400x400&data=https%3A%2F%2Fapp.example%2FArtifactView%3Fid%3D42%26x%3Da+b",
		got)

	custom := NewRenderer("https://qr.internal/render", "200x200")
	assert.Equal(t, "https://qr.internal/render?size=200x200&data=abc", custom.RenderURL("abc"))
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "artifact_Pottery_Fragment.png", DownloadFilename("Pottery Fragment"))
	assert.Equal(t, "artifact_Stone_Tool_2.png", DownloadFilename("Stone  Tool\t2"))
	assert.Equal(t, "artifact_qrcode.png", DownloadFilename(""))
}
