package booking

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

const DateLayout = "2006-01-02"

// accepted input layouts; the second is what the web client sends
var dateLayouts = []string{
	DateLayout,
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate normalizes a calendar date to YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.Format(DateLayout), nil
		}
	}
	return "", ErrInvalidDate
}
