package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/catalog"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

var timestampInputs = []string{
	timestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	dateLayout,
}

// bind converts an input value for column c. The result is either a plain
// value or a squirrel expression wrapping the bind parameter. Empty input
// binds NULL.
func bind(d database.Dialect, c ResolvedColumn, v any) (any, error) {
	if isEmpty(v) {
		return nil, nil
	}

	switch c.Type {
	case KindInt:
		n, ok := parseInt(v)
		if !ok {
			return nil, invalid(c.Name, "%q is not a whole number", fmt.Sprint(v))
		}
		return n, nil

	case KindDate:
		day, err := parseDate(c.Name, v, false)
		if err != nil {
			return nil, err
		}
		return bindDay(d, c, day), nil

	case KindYear:
		day, err := parseDate(c.Name, v, true)
		if err != nil {
			return nil, err
		}
		if c.Class == catalog.TypeClassText {
			return strings.TrimSpace(text(v)), nil
		}
		return bindDay(d, c, day), nil

	case KindTimestamp:
		ts, err := parseTimestamp(c.Name, v)
		if err != nil {
			return nil, err
		}
		switch c.Class {
		case catalog.TypeClassDate:
			return sq.Expr(d.TimestampExpr(), ts.Format(timestampLayout)), nil
		case catalog.TypeClassNumber:
			return nil, invalid(c.Name, "column %s cannot hold a timestamp", c.Physical)
		default:
			return ts.Format(timestampLayout), nil
		}

	default:
		if c.Class != catalog.TypeClassNumber {
			return v, nil
		}
		if n, ok := parseInt(v); ok {
			return n, nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, invalid(c.Name, "%q is not a number", s)
			}
			return f, nil
		}
		return v, nil
	}
}

// bindDay stores a calendar day according to the column's declared type:
// parsed through the dialect date function, as the bare year, or as text.
func bindDay(d database.Dialect, c ResolvedColumn, day time.Time) any {
	switch c.Class {
	case catalog.TypeClassDate:
		return sq.Expr(d.DateExpr(), day.Format(dateLayout))
	case catalog.TypeClassNumber:
		return int64(day.Year())
	default:
		return day.Format(dateLayout)
	}
}

// now is the value an OnCreateNow column receives when input has none.
// Numeric columns get nothing.
func now(d database.Dialect, c ResolvedColumn) (any, bool) {
	switch c.Class {
	case catalog.TypeClassDate:
		return sq.Expr(d.Now()), true
	case catalog.TypeClassNumber:
		return nil, false
	default:
		if c.Type == KindTimestamp {
			return time.Now().Format(timestampLayout), true
		}
		return time.Now().Format(dateLayout), true
	}
}

func parseDate(field string, v any, allowYear bool) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(text(v))
	if allowYear && len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	// A trailing time part is dropped; anything else is left to fail.
	if len(s) > len(dateLayout) && (s[len(dateLayout)] == ' ' || s[len(dateLayout)] == 'T') {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if allowYear {
			return time.Time{}, invalid(field, "%q must be YYYY or YYYY-MM-DD", text(v))
		}
		return time.Time{}, invalid(field, "%q must be YYYY-MM-DD", text(v))
	}
	return t, nil
}

func parseTimestamp(field string, v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(text(v))
	for _, layout := range timestampInputs {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid(field, "%q must be YYYY-MM-DD HH:MM:SS", s)
}

func parseInt(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	return database.ToInt64(v)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
