package path

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
		errorType   error
	}{
		{
			name:        "valid simple prefix",
			path:        "artifacts",
			expectError: false,
		},
		{
			name:        "valid nested prefix",
			path:        "artifacts/photos",
			expectError: false,
		},
		{
			name:        "valid root",
			path:        "/",
			expectError: false,
		},
		{
			name:        "valid with leading and trailing slash",
			path:        "/artifacts/",
			expectError: false,
		},
		{
			name:        "empty",
			path:        "",
			expectError: true,
			errorType:   ErrEmptyPath,
		},
		{
			name:        "parent traversal",
			path:        "../etc",
			expectError: true,
			errorType:   ErrPathTraversal,
		},
		{
			name:        "dots only part",
			path:        "artifacts/.../x",
			expectError: true,
			errorType:   ErrPathTraversal,
		},
		{
			name:        "null byte",
			path:        "arti\x00facts",
			expectError: true,
			errorType:   ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrefix(tt.path)
			if tt.expectError {
				assert.Error(t, err)
				if tt.errorType != nil {
					assert.ErrorIs(t, err, tt.errorType)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"shard.jpg", "shard.jpg"},
		{"/var/tmp/shard.jpg", "shard.jpg"},
		{"C:\\Users\\field\\IMG_0001.JPG", "IMG_0001.JPG"},
		{".hidden", "file_.hidden"},
		{"a\x00b.png", "a_b.png"},
		{"", "upload"},
		{"   ", "upload"},
		{"dir/", "upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	at := time.Date(2025, 7, 4, 23, 30, 0, 0, time.FixedZone("x", -5*3600))

	key, err := ObjectKey("artifacts", at, id, ".JPG")
	require.NoError(t, err)
	assert.Equal(t, "artifacts/2025/07/123e4567-e89b-12d3-a456-426614174000.jpg", key)

	key, err = ObjectKey("/uploads/", at, id, "png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/2025/07/123e4567-e89b-12d3-a456-426614174000.png", key)

	key, err = ObjectKey("/", at, id, "")
	require.NoError(t, err)
	assert.Equal(t, "2025/07/123e4567-e89b-12d3-a456-426614174000", key)

	_, err = ObjectKey("../x", at, id, ".png")
	assert.ErrorIs(t, err, ErrPathTraversal)
}
