// Package store persists verification records and reads them back for history.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

var (
	// ErrDuplicateRecord is returned when a record id has already been written.
	ErrDuplicateRecord = errors.New("record already exists")
	// ErrRecordNotFound is returned by Get for an unknown id.
	ErrRecordNotFound = errors.New("record not found")
)

// RecordStore is append-only: records are inserted once and never updated.
type RecordStore interface {
	Insert(ctx context.Context, rec model.VerificationRecord) error
	List(ctx context.Context, f Filter) ([]model.VerificationRecord, error)
	Get(ctx context.Context, id string) (model.VerificationRecord, error)
	Close(ctx context.Context) error
}

// Filter narrows List. Zero fields match everything; Limit 0 means no limit.
type Filter struct {
	ProductID string
	Category  string
	From      time.Time
	To        time.Time
	Limit     int
}

func (f Filter) category() string {
	return strings.ToUpper(strings.TrimSpace(f.Category))
}

func (f Filter) bound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Match reports whether rec passes the filter. Timestamps compare as
// RFC3339 UTC strings.
func (f Filter) Match(rec model.VerificationRecord) bool {
	if f.ProductID != "" && rec.ProductID != f.ProductID {
		return false
	}
	if c := f.category(); c != "" && strings.ToUpper(rec.ProductCategory) != c {
		return false
	}
	if from := f.bound(f.From); from != "" && rec.Timestamp < from {
		return false
	}
	if to := f.bound(f.To); to != "" && rec.Timestamp > to {
		return false
	}
	return true
}

// apply filters, orders newest first and truncates.
func (f Filter) apply(records []model.VerificationRecord) []model.VerificationRecord {
	out := make([]model.VerificationRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
