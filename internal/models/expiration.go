package models

import (
	"fmt"
	"time"
)

// ExpirationPolicy is the lifetime selected by the uploader.
type ExpirationPolicy string

const (
	ExpiresUnlimited ExpirationPolicy = "unlimited"
	ExpiresIn1Hour   ExpirationPolicy = "1h"
	ExpiresIn24Hours ExpirationPolicy = "24h"
	ExpiresIn7Days   ExpirationPolicy = "7d"
	ExpiresIn30Days  ExpirationPolicy = "30d"
)

var expirationDurations = map[ExpirationPolicy]time.Duration{
	ExpiresUnlimited: 0,
	ExpiresIn1Hour:   time.Hour,
	ExpiresIn24Hours: 24 * time.Hour,
	ExpiresIn7Days:   7 * 24 * time.Hour,
	ExpiresIn30Days:  30 * 24 * time.Hour,
}

// ParseExpirationPolicy parses a policy name. An empty string means unlimited.
func ParseExpirationPolicy(s string) (ExpirationPolicy, error) {
	if s == "" {
		return ExpiresUnlimited, nil
	}
	p := ExpirationPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown expiration policy %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known policies.
func (p ExpirationPolicy) Valid() bool {
	_, ok := expirationDurations[p]
	return ok
}

// ExpiresAt returns the expiration instant relative to now, or nil for unlimited.
func (p ExpirationPolicy) ExpiresAt(now time.Time) *time.Time {
	d, ok := expirationDurations[p]
	if !ok || d == 0 {
		return nil
	}
	t := now.Add(d).UTC()
	return &t
}
