package domain

import "time"

// RawRecord is a catalog payload as it was received, plus its write and expiry instants.
type RawRecord struct {
	Key       string
	NumericID int64
	Payload   string
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the record is no longer valid at now.
// A record expiring exactly at now is expired.
func (r *RawRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
