package output

import (
	"context"
	"io"
)

// FileStore defines the secondary port for exported track files. The key
// space is flat; export jobs use "<jobID>.gpx".
type FileStore interface {
	// Put writes an object under key, overwriting any existing one.
	Put(ctx context.Context, key string, r io.Reader) error

	// GetReader returns a reader for the given object.
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeLocal StorageType = "local"
)
