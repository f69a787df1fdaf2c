// Package period handles budget month keys. Months are exchanged over the API
// as "YYYY-MM" and stored compact as "YYYYMM"; the mapping between the two
// must be exact in both directions.
package period

import (
	"fmt"
	"regexp"
	"time"
)

var (
	keyPattern     = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	compactPattern = regexp.MustCompile(`^(\d{4})(0[1-9]|1[0-2])$`)
)

// Normalize accepts a month in either "YYYY-MM" or compact "YYYYMM" form and
// returns the canonical "YYYY-MM" key.
func Normalize(s string) (string, error) {
	if keyPattern.MatchString(s) {
		return s, nil
	}
	if compactPattern.MatchString(s) {
		return s[:4] + "-" + s[4:], nil
	}
	return "", fmt.Errorf("invalid month key %q", s)
}

// Compact converts a canonical "YYYY-MM" key to the storage form "YYYYMM".
func Compact(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid month key %q", key)
	}
	return key[:4] + key[5:], nil
}

// Expand converts a storage form "YYYYMM" back to the canonical "YYYY-MM" key.
func Expand(compact string) (string, error) {
	if !compactPattern.MatchString(compact) {
		return "", fmt.Errorf("invalid compact month key %q", compact)
	}
	return compact[:4] + "-" + compact[4:], nil
}

// Bounds returns the inclusive time window of a month key: the first instant
// of the month and the last nanosecond of its final day, in UTC.
func Bounds(key string) (start, end time.Time, err error) {
	norm, err := Normalize(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := time.Parse("2006-01", norm)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// FromTime returns the canonical month key containing the given time.
func FromTime(t time.Time) string {
	return t.Format("2006-01")
}
