// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	"deltashare-mock/internal/domain"
)

// === Object Store Mock ===

// MockObjectStore implements domain.ObjectStore for testing. Each method
// delegates to its Fn field when set; otherwise it falls back to an
// in-memory bucket/object map so simple tests need no setup. Every call is
// recorded in Calls.
type MockObjectStore struct {
	BucketExistsFn func(ctx context.Context, bucket string) (bool, error)
	MakeBucketFn   func(ctx context.Context, bucket string) error
	StatObjectFn   func(ctx context.Context, bucket, key string) (domain.ObjectInfo, error)
	PutObjectFn    func(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	GetObjectFn    func(ctx context.Context, bucket, key string) (io.ReadCloser, domain.ObjectInfo, error)

	mu      sync.Mutex
	Calls   []string
	Buckets map[string]bool
	Objects map[string][]byte // keyed by bucket + "/" + key
}

// NewMockObjectStore returns an empty in-memory store.
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Buckets: map[string]bool{}, Objects: map[string][]byte{}}
}

func (m *MockObjectStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many calls were made to the store.
func (m *MockObjectStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsTo returns how many times the named method was called.
func (m *MockObjectStore) CallsTo(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// BucketExists implements the interface method for testing.
func (m *MockObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	m.record("BucketExists")
	if m.BucketExistsFn != nil {
		return m.BucketExistsFn(ctx, bucket)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Buckets[bucket], nil
}

// MakeBucket implements the interface method for testing.
func (m *MockObjectStore) MakeBucket(ctx context.Context, bucket string) error {
	m.record("MakeBucket")
	if m.MakeBucketFn != nil {
		return m.MakeBucketFn(ctx, bucket)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Buckets[bucket] = true
	return nil
}

// StatObject implements the interface method for testing.
func (m *MockObjectStore) StatObject(ctx context.Context, bucket, key string) (domain.ObjectInfo, error) {
	m.record("StatObject")
	if m.StatObjectFn != nil {
		return m.StatObjectFn(ctx, bucket, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[bucket+"/"+key]
	if !ok {
		return domain.ObjectInfo{}, domain.ErrNotFound("object %s/%s not found", bucket, key)
	}
	return domain.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

// PutObject implements the interface method for testing.
func (m *MockObjectStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	m.record("PutObject")
	if m.PutObjectFn != nil {
		return m.PutObjectFn(ctx, bucket, key, body, size, contentType)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[bucket+"/"+key] = data
	return nil
}

// GetObject implements the interface method for testing.
func (m *MockObjectStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, domain.ObjectInfo, error) {
	m.record("GetObject")
	if m.GetObjectFn != nil {
		return m.GetObjectFn(ctx, bucket, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[bucket+"/"+key]
	if !ok {
		return nil, domain.ObjectInfo{}, domain.ErrNotFound("object %s/%s not found", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), domain.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}
