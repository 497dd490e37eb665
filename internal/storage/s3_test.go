package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	bucket, key, err := ParseRef("s3://snapshots/exports/packages.json")
	require.NoError(t, err)
	assert.Equal(t, "snapshots", bucket)
	assert.Equal(t, "exports/packages.json", key)

	for _, bad := range []string{"snapshots/packages.json", "s3://", "s3:///key", "s3://bucket/"} {
		_, _, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsRef(t *testing.T) {
	assert.True(t, IsRef("s3://b/k"))
	assert.False(t, IsRef("/tmp/summary.json"))
}

func TestSnapshotKey(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "snapshots/packages-20250102T030405Z.json", SnapshotKey(ts))
}
