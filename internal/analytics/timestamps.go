package analytics

import (
	"strings"
	"time"

	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour
	dayLayout     = "2006-01-02"
)

// ParseRange reads from/to query values, each either RFC3339 or a bare date.
// A bare "to" date is inclusive. Missing values default to the 30 days
// ending at now.
func ParseRange(fromRaw, toRaw string, now time.Time) (Range, error) {
	to := now.UTC()
	from := to.Add(-defaultWindow)

	if strings.TrimSpace(toRaw) != "" {
		parsed, dateOnly, err := parseInstant(toRaw)
		if err != nil {
			return Range{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to").
				WithDetails(map[string]string{"to": "must be RFC3339 or YYYY-MM-DD"})
		}
		if dateOnly {
			parsed = parsed.Add(24 * time.Hour)
		}
		to = parsed
		if strings.TrimSpace(fromRaw) == "" {
			from = to.Add(-defaultWindow)
		}
	}
	if strings.TrimSpace(fromRaw) != "" {
		parsed, _, err := parseInstant(fromRaw)
		if err != nil {
			return Range{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from").
				WithDetails(map[string]string{"from": "must be RFC3339 or YYYY-MM-DD"})
		}
		from = parsed
	}

	r := Range{From: from, To: to}
	return r, r.validate()
}

func parseInstant(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

// dayKey buckets t by UTC calendar day.
func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
