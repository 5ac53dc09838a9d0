// Package queue holds the walk-up queue protocol: day rollover, ticket
// numbering, the coordinator that mutates the shared store, and the
// reconciliation every viewer runs over its read replica.
package queue

import (
	"ticketer/common/constant"
	"time"
)

// DayKey is the calendar day of t in loc, formatted YYYY-MM-DD. A nil loc
// means the process local zone.
func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}

	return t.Format(constant.DayKeyLayout)
}
