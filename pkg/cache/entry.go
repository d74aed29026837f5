package cache

import (
	"time"
)

// Policy is the caching policy of one resource family.
type Policy struct {
	// TTL is how long a populated value stays fresh. Zero means never cache.
	TTL time.Duration
}

// Cacheable reports whether values under this policy are stored at all.
func (p Policy) Cacheable() bool {
	return p.TTL > 0
}

// Entry is a cached payload. Entries are immutable once stored; a new
// population replaces the whole entry.
type Entry struct {
	// Value is the payload exactly as returned by the source
	Value []byte

	// StoredAt is when the population that produced Value completed
	StoredAt time.Time

	// TTL is the policy TTL at the time of storing
	TTL time.Duration
}

// ExpiresAt returns the instant the entry stops being fresh.
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}

// IsFresh reports whether the entry may still be served at now.
func (e *Entry) IsFresh(now time.Time) bool {
	return now.Before(e.ExpiresAt())
}

// Remaining returns the time until expiration at now.
// Returns 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	ttl := e.ExpiresAt().Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
