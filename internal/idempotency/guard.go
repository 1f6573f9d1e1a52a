// Package idempotency suppresses duplicate verification writes for requests
// carrying the same caller key or the same content.
package idempotency

import (
	"context"
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Guard tracks claimed keys. A claim is pending until Complete records the
// transaction id that owns it, or Release drops it.
type Guard interface {
	// Claim takes key when free. When key is already taken it returns the
	// owning transaction id, empty while the owner is still in flight.
	Claim(ctx context.Context, key string) (existingTxID string, claimed bool, err error)
	Complete(ctx context.Context, key, txID string) error
	Release(ctx context.Context, key string) error
}

// RequestKey returns the caller-supplied key when present and the content
// key otherwise.
func RequestKey(req model.VerificationRequest, label, overview []byte) string {
	if k := strings.TrimSpace(req.IdempotencyKey); k != "" {
		return "caller:" + k
	}
	return ContentKey(req, label, overview)
}

// ContentKey hashes product id, upper-cased category and both uploaded images.
func ContentKey(req model.VerificationRequest, label, overview []byte) string {
	h := xxhash.New64()
	for _, part := range [][]byte{
		[]byte(strings.TrimSpace(req.ProductID)),
		[]byte(strings.ToUpper(strings.TrimSpace(req.ProductCategory))),
		label,
		overview,
	} {
		_, _ = h.Write(part)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("content:%016x", h.Sum64())
}
