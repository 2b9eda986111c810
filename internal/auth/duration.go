package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseExpiration turns a user-supplied expiry into an absolute time.
//
//	""/"never"    no expiration (nil)
//	"30d", "2w"   days or weeks from now
//	"24h", "90m"  any Go duration
//	"2026-12-31"  ISO date, midnight UTC
func ParseExpiration(expiresIn string) (*time.Time, error) {
	if expiresIn == "" || expiresIn == "never" {
		return nil, nil
	}

	if dur, err := time.ParseDuration(expiresIn); err == nil {
		t := time.Now().Add(dur)
		return &t, nil
	}

	if t, err := time.Parse("2006-01-02", expiresIn); err == nil {
		if t.Before(time.Now()) {
			return nil, fmt.Errorf("expiration date must be in the future: %s", expiresIn)
		}
		return &t, nil
	}

	// "30d" / "2w" shorthand
	if n := len(expiresIn); n > 1 {
		unit := expiresIn[n-1]
		if num, err := strconv.Atoi(strings.TrimSpace(expiresIn[:n-1])); err == nil && num > 0 {
			switch unit {
			case 'd':
				t := time.Now().Add(time.Duration(num) * 24 * time.Hour)
				return &t, nil
			case 'w':
				t := time.Now().Add(time.Duration(num) * 7 * 24 * time.Hour)
				return &t, nil
			}
		}
	}

	return nil, fmt.Errorf("invalid expiration format: %s (use 'never', '30d', '2w', a Go duration, or an ISO date)", expiresIn)
}
