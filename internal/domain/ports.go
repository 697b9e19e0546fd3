package domain

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ObjectStore is the external key-object store backing CSV delivery.
// Implemented by storage.S3Store.
//
// StatObject and GetObject return *NotFoundError when the key is absent,
// *UnavailableError when the store cannot be reached and *StorageError for
// any other store failure. MakeBucket treats an already existing bucket as
// success.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
}

// CatalogReader is the read-only view of the share catalog.
// Implemented by catalog.Catalog.
type CatalogReader interface {
	Shares() []Share
	Share(name string) (Share, error)
	Schemas(share string) ([]Schema, error)
	Tables(share, schema string) ([]Table, error)
	AllTables(share string) ([]Table, error)
	Table(share, schema, table string) (Table, error)
}
