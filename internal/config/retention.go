package config

import "time"

// RetainUntil returns the cutoff before which artifacts are older than
// maxAgeDays. A zero time means no age limit.
func RetainUntil(now time.Time, maxAgeDays int) time.Time {
	if maxAgeDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -maxAgeDays)
}

func IsExpired(created, now time.Time, maxAgeDays int) bool {
	cutoff := RetainUntil(now, maxAgeDays)
	if cutoff.IsZero() {
		return false
	}
	return created.Before(cutoff)
}

// ExpiresAt returns the UTC expiry for an artifact created at now, or the
// zero time when days is not positive.
func ExpiresAt(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.UTC().AddDate(0, 0, days)
}
