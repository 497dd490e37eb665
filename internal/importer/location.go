package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"package-dashboard/internal/storage"
)

// ObjectStore is the slice of the object-storage client snapshots need.
type ObjectStore interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

var errNoObjectStore = errors.New("object storage is not configured")

// OpenSource opens a snapshot given as a local path or an s3:// reference.
func OpenSource(ctx context.Context, src string, objects ObjectStore) (io.ReadCloser, error) {
	if src == "" {
		return nil, errors.New("snapshot source is empty")
	}
	if storage.IsRef(src) {
		if objects == nil {
			return nil, errNoObjectStore
		}
		return objects.Open(ctx, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return f, nil
}

// WriteDestination stores an encoded snapshot and returns where it went.
// An empty dest means a new timestamped object in the configured bucket.
func WriteDestination(ctx context.Context, dest string, body []byte, objects ObjectStore) (string, error) {
	if dest != "" && !storage.IsRef(dest) {
		if err := os.WriteFile(dest, body, 0o644); err != nil {
			return "", fmt.Errorf("write snapshot: %w", err)
		}
		return dest, nil
	}
	if objects == nil {
		return "", errNoObjectStore
	}
	key := storage.SnapshotKey(time.Now())
	if dest != "" {
		_, k, err := storage.ParseRef(dest)
		if err != nil {
			return "", err
		}
		key = k
	}
	return objects.Put(ctx, key, body, "application/json")
}
