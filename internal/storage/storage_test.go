package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	name := objectName("my promo video (final).mp4")
	assert.True(t, strings.HasSuffix(name, ".mp4"), name)
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "(")

	// degenerate names still yield something usable
	name = objectName("???.png")
	assert.True(t, strings.HasPrefix(name, "upload_"), name)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "video", Kind("clip.MP4"))
	assert.Equal(t, "video", Kind("clip.webm"))
	assert.Equal(t, "image", Kind("poster.png"))
	assert.Equal(t, "image", Kind("unknown.bin"))
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MediaType("a.JPG"))
	assert.Equal(t, "video/quicktime", MediaType("a.mov"))
	assert.Equal(t, "application/octet-stream", MediaType("a.xyz"))
}
