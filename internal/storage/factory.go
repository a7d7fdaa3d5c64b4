package storage

import "strings"

// NewStore creates an ObjectStore for the configured backend, detecting the
// storage type from the endpoint when it is not set explicitly.
func NewStore(cfg *S3Config) (*S3Store, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}
	return NewS3Store(cfg)
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeMinIO
	}
}
