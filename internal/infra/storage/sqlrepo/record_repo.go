// Package sqlrepo implements storage.RecordStore on top of any sqlx handle
// whose schema was created by the migrations package.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/infra/storage"
)

const (
	selectByKey = `SELECT lookup_key, numeric_id, payload, updated_at, expires_at
		FROM species_records
		WHERE lookup_key = ? AND expires_at > ?
		LIMIT 1`

	upsertRecord = `INSERT INTO species_records (lookup_key, numeric_id, payload, updated_at, expires_at)
		VALUES (:lookup_key, :numeric_id, :payload, :updated_at, :expires_at)
		ON CONFLICT (lookup_key) DO UPDATE SET
			numeric_id = excluded.numeric_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`

	countRecords  = `SELECT COUNT(*) FROM species_records`
	deleteExpired = `DELETE FROM species_records WHERE expires_at <= ?`
)

type recordRow struct {
	Key       string `db:"lookup_key"`
	NumericID int64  `db:"numeric_id"`
	Payload   string `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// RecordRepo implements storage.RecordStore with SQL. Timestamps are stored
// as unix seconds; expiry is part of the read predicate.
type RecordRepo struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewRecordRepo creates a repository; ttl <= 0 uses storage.DefaultRecordTTL.
// Rows keep whole seconds, so a positive ttl under one second is raised to
// one second.
func NewRecordRepo(db *sqlx.DB, ttl time.Duration) *RecordRepo {
	switch {
	case ttl <= 0:
		ttl = storage.DefaultRecordTTL
	case ttl < time.Second:
		ttl = time.Second
	}
	return &RecordRepo{db: db, ttl: ttl, now: time.Now}
}

// FindByKey retrieves the live record for key.
func (r *RecordRepo) FindByKey(ctx context.Context, key string) (*domain.RawRecord, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(selectByKey), key, r.now().Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record %q: %w", key, err)
	}

	return &domain.RawRecord{
		Key:       row.Key,
		NumericID: row.NumericID,
		Payload:   row.Payload,
		UpdatedAt: time.Unix(row.UpdatedAt, 0),
		ExpiresAt: time.Unix(row.ExpiresAt, 0),
	}, nil
}

// Upsert inserts the record or replaces every column of the existing row.
func (r *RecordRepo) Upsert(ctx context.Context, rec *domain.RawRecord) error {
	storage.Stamp(rec, r.now(), r.ttl)

	_, err := r.db.NamedExecContext(ctx, upsertRecord, recordRow{
		Key:       rec.Key,
		NumericID: rec.NumericID,
		Payload:   rec.Payload,
		UpdatedAt: rec.UpdatedAt.Unix(),
		ExpiresAt: rec.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert record %q: %w", rec.Key, err)
	}
	return nil
}

// Count returns the number of stored rows, expired ones included.
func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, countRecords); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// DeleteExpired removes rows whose expiry is not after now.
func (r *RecordRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(deleteExpired), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}
	return res.RowsAffected()
}
