package database

import (
	"fmt"
	"time"
)

// ShortDate renders a date value as YYYY-MM-DD. Text values are cut to their
// first ten characters, so '2024-03-15 10:00:00' and a DATE column read back
// as time.Time format the same way. nil renders as "".
func ShortDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(time.DateOnly)
	case *time.Time:
		if d == nil {
			return ""
		}
		return ShortDate(*d)
	case string:
		if len(d) > 10 {
			return d[:10]
		}
		return d
	case []byte:
		return ShortDate(string(d))
	default:
		return fmt.Sprint(v)
	}
}
