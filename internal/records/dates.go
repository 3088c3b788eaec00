package records

import (
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

var dateLayouts = []string{time.DateOnly, time.RFC3339}

// ParseDate parses s as a calendar date (2006-01-02) or an RFC 3339
// timestamp and returns it in UTC. Anything else is an invalid_input failure
// naming field.
func ParseDate(field, s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, types.NewInvalidInput(field + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}
