package storage

import "context"

// ObjectStore defines the object storage operations the pipeline needs.
type ObjectStore interface {
	// UploadFile uploads a local file and returns the backend's ETag as
	// acknowledgment that the write was durably accepted. An empty ETag
	// means the backend did not acknowledge the object.
	UploadFile(ctx context.Context, key, localPath, contentType string) (string, error)

	// Exists checks whether an object is already present under the key.
	Exists(ctx context.Context, key string) (bool, error)
}
