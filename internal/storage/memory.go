package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"dp-go/internal/dp"
)

// MemoryBucketStore is an in-memory implementation of the bucket store,
// useful for testing. It is safe for concurrent use and mirrors the remote
// service's behavior: creating an existing bucket fails, deleting a
// non-empty bucket fails.
type MemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	creates int
	puts    int
}

// NewMemoryBucketStore creates an empty in-memory bucket store.
func NewMemoryBucketStore() *MemoryBucketStore {
	return &MemoryBucketStore{
		buckets: make(map[string]map[string][]byte),
	}
}

// CreateBucket creates a bucket. Fails if the bucket already exists.
func (m *MemoryBucketStore) CreateBucket(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[name]; ok {
		return fmt.Errorf("bucket already exists: %s", name)
	}
	m.buckets[name] = make(map[string][]byte)
	m.creates++
	return nil
}

// PutObject stores the object, verifying the declared size.
func (m *MemoryBucketStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket not found: %s", bucket)
	}
	b[key] = data
	m.puts++
	return nil
}

// DeleteObject removes an object.
func (m *MemoryBucketStore) DeleteObject(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket not found: %s", bucket)
	}
	if _, ok := b[key]; !ok {
		return fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	delete(b, key)
	return nil
}

// DeleteBucket removes a bucket. Fails if the bucket still holds objects.
func (m *MemoryBucketStore) DeleteBucket(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return fmt.Errorf("bucket not found: %s", name)
	}
	if len(b) != 0 {
		return fmt.Errorf("bucket not empty: %s", name)
	}
	delete(m.buckets, name)
	return nil
}

// BucketNames returns the names of buckets that currently exist.
func (m *MemoryBucketStore) BucketNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.buckets))
	for name := range m.buckets {
		names = append(names, name)
	}
	return names
}

// Object returns a stored object's bytes and whether it exists.
func (m *MemoryBucketStore) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, false
	}
	data, ok := b[key]
	return data, ok
}

// CreateCalls returns how many buckets were ever created.
func (m *MemoryBucketStore) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// PutCalls returns how many objects were ever uploaded.
func (m *MemoryBucketStore) PutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Compile-time check that MemoryBucketStore implements dp.BucketStore
var _ dp.BucketStore = (*MemoryBucketStore)(nil)
