package imagescan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstImage(t *testing.T) {
	assert.Equal(t, "registry.local/zlib:1.3", FirstImage("registry.local/zlib:1.3, registry.local/zlib:debug"))
	assert.Equal(t, "busybox", FirstImage("  busybox\nalpine"))
	assert.Equal(t, "", FirstImage(" , "))
}

func TestImageRef(t *testing.T) {
	assert.Equal(t, "docker.io/library/busybox:latest", imageRef("busybox"))
	assert.Equal(t, "python:3.12", imageRef("python:3.12"))
	assert.Equal(t, "ghcr.io/acme/tool", imageRef("ghcr.io/acme/tool"))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "1.5GB", HumanSize(1_500_000_000))
	assert.Equal(t, "512B", HumanSize(512))
}
