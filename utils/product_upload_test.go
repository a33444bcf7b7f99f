package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageObjectKey(t *testing.T) {
	const base = "https://cdn.example.com"

	// A stored public URL maps back to the full key, folder included.
	assert.Equal(t, "product_images/abc_123.png",
		imageObjectKey(base, base+"/product_images/abc_123.png"))

	// A bare key passes through untouched.
	assert.Equal(t, "product_images/abc_123.png",
		imageObjectKey(base, "product_images/abc_123.png"))

	// No configured public base: nothing to strip.
	assert.Equal(t, "product_images/abc_123.png",
		imageObjectKey("", "product_images/abc_123.png"))
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", getContentType("photo.JPG"))
	assert.Equal(t, "image/png", getContentType("logo.png"))
	assert.Equal(t, "image/webp", getContentType("banner.webp"))
	assert.Equal(t, "application/octet-stream", getContentType("notes.txt"))
}
