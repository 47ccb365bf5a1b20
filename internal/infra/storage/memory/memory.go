package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/infra/storage"
)

// RecordRepo is an in-memory storage.RecordStore. Keys are used exactly as
// given. Expired records are removed when a read observes them.
type RecordRepo struct {
	mu      sync.RWMutex
	records map[string]domain.RawRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewRecordRepo creates an empty repository; ttl <= 0 uses storage.DefaultRecordTTL.
func NewRecordRepo(ttl time.Duration) *RecordRepo {
	if ttl <= 0 {
		ttl = storage.DefaultRecordTTL
	}
	return &RecordRepo{
		records: make(map[string]domain.RawRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *RecordRepo) FindByKey(ctx context.Context, key string) (*domain.RawRecord, error) {
	now := r.now()

	r.mu.RLock()
	rec, ok := r.records[key]
	r.mu.RUnlock()
	if !ok {
		return nil, storage.ErrRecordNotFound
	}

	if rec.ExpiredAt(now) {
		r.mu.Lock()
		// Re-check: a concurrent upsert may have refreshed it.
		if cur, ok := r.records[key]; ok && cur.ExpiredAt(now) {
			delete(r.records, key)
		}
		r.mu.Unlock()
		return nil, storage.ErrRecordNotFound
	}

	// Return copy
	out := rec
	return &out, nil
}

func (r *RecordRepo) Upsert(ctx context.Context, rec *domain.RawRecord) error {
	storage.Stamp(rec, r.now(), r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key] = *rec
	return nil
}

func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *RecordRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if rec.ExpiredAt(now) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}
