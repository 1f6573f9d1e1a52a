package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// ImageAccess is a temporary read URL for one stored image.
type ImageAccess struct {
	Key          string    `json:"key"`
	PresignedURL string    `json:"presignedUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IsPathSegment reports whether s can be used as one element of a storage
// location: non-empty, no separators, not "." or "..".
func IsPathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// NormalizeKey undoes URL encoding left in stored keys and drops a leading slash.
func NormalizeKey(key string) string {
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	return strings.TrimSpace(strings.TrimPrefix(key, "/"))
}

// IsReferenceKey reports whether key lies under the reference dataset prefix.
func (c *Catalog) IsReferenceKey(key string) bool {
	return strings.HasPrefix(key, strings.TrimSuffix(c.layout.Prefix, "/")+"/")
}

// Access presigns key for reading. Reference keys are served from the
// dataset store and everything else from uploads. It returns nil when the key
// is empty or inline, or when the owning store cannot presign.
func (c *Catalog) Access(ctx context.Context, uploads ObjectStore, key string) (*ImageAccess, error) {
	key = NormalizeKey(key)
	if key == "" || key == model.InlineImageKey {
		return nil, nil
	}

	owner := uploads
	if c.IsReferenceKey(key) {
		owner = c.store
	}
	presigner, ok := owner.(Presigner)
	if !ok {
		return nil, nil
	}

	signed, err := presigner.PresignGet(ctx, key, c.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return &ImageAccess{Key: key, PresignedURL: signed, ExpiresAt: time.Now().Add(c.presignTTL)}, nil
}

// AccessAll presigns every key, skipping those that fail. Failures are logged.
func (c *Catalog) AccessAll(ctx context.Context, uploads ObjectStore, keys []string) []ImageAccess {
	out := make([]ImageAccess, 0, len(keys))
	for _, key := range keys {
		access, err := c.Access(ctx, uploads, key)
		if err != nil {
			c.logger.Warn("failed to presign image", zap.String("key", key), zap.Error(err))
			continue
		}
		if access != nil {
			out = append(out, *access)
		}
	}
	return out
}

// PresignTTL is how long URLs from Access stay valid.
func (c *Catalog) PresignTTL() time.Duration {
	return c.presignTTL
}
