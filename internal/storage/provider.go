// Package storage defines the blob storage abstraction used to archive raw
// portal pages. The abstraction keeps the pipeline independent of where
// archives land (Google Cloud Storage, the local filesystem, or nowhere in
// dry runs).
package storage

import (
	"context"
)

// Provider is the common interface for a blob storage provider.
type Provider interface {
	// Save uploads data to the given object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards everything. Useful for dry runs where pages are
// fetched but not archived.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
