// Package catalog resolves reference and uploaded images from object storage.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is wrapped by every ObjectStore when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is one listed entry.
type Object struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// ObjectStore is the minimal read surface over a bucket or directory.
// Keys are slash separated.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every object under prefix, recursively.
	List(ctx context.Context, prefix string) ([]Object, error)
	// ListPrefixes returns the immediate child prefixes of prefix, each ending in "/".
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
}

// Presigner is implemented by stores that can hand out temporary read URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
