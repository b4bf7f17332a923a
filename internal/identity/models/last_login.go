package models

import (
	"strings"
	"time"
)

// lastLoginLayouts lists the accepted last_login formats, most specific first.
// Values without a zone are read as UTC.
var lastLoginLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseLastLogin converts a raw last-login value into a time. Empty or
// unparseable input yields nil, which the engine treats as "never dormant".
func ParseLastLogin(raw string) *time.Time {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	for _, layout := range lastLoginLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
