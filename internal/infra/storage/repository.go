package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/dexcache/internal/core/domain"
)

// DefaultRecordTTL is how long a stored payload stays valid when the writer
// supplies no expiry.
const DefaultRecordTTL = 30 * 24 * time.Hour

var (
	// ErrRecordNotFound is returned when no live record exists for a key
	ErrRecordNotFound = errors.New("record not found")
)

// RecordStore persists raw catalog payloads keyed by lookup key
type RecordStore interface {
	// FindByKey returns the live record for key, or ErrRecordNotFound when it
	// is absent or expired
	FindByKey(ctx context.Context, key string) (*domain.RawRecord, error)

	// Upsert inserts or fully replaces the record for rec.Key
	Upsert(ctx context.Context, rec *domain.RawRecord) error
}

// RecordCounter is implemented by stores that can report their size
type RecordCounter interface {
	Count(ctx context.Context) (int, error)
}

// RecordSweeper is implemented by stores that can drop expired records in bulk
type RecordSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Stamp fills missing timestamps: UpdatedAt defaults to now and ExpiresAt
// to UpdatedAt plus ttl.
func Stamp(rec *domain.RawRecord, now time.Time, ttl time.Duration) {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = rec.UpdatedAt.Add(ttl)
	}
}
