// Package normalize turns loosely typed import rows into candidate health
// records. Nothing in this package fails on bad field content: unparseable
// values collapse to safe defaults and invalid records are filtered later.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"healthlog/internal/domain"
)

var (
	isoDay      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// serialEpoch is day zero of the spreadsheet serial date convention.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31, the last day a spreadsheet can represent.
const maxSerial = 2958465

// Float parses v as a decimal. Strings are read up to the first character
// that cannot continue a number, so "72.5kg" yields 72.5.
func Float(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		return Float(x.String())
	case string:
		m := floatPrefix.FindString(strings.TrimSpace(x))
		if m == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int parses v as an integer, truncating fractional input toward zero.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case float64, float32, int, int64, int32:
		f, ok := Float(x)
		if !ok {
			return 0, false
		}
		return int(math.Trunc(f)), true
	case json.Number:
		return Int(x.String())
	case string:
		m := intPrefix.FindString(strings.TrimSpace(x))
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

var truthy = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true,
	"是": true, "有": true, "✓": true, "√": true,
}

// Bool interprets v as a yes/no flag. Only the truthy words above count as
// true; anything else is false, including the "否"/"no" text written by
// exports. This is deliberately stricter than treating every non-empty string
// as true, which would turn an exported "否" back into true on re-import.
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(x))]
	case json.Number:
		f, ok := Float(x)
		return ok && f != 0
	case float64, float32, int, int64, int32:
		f, ok := Float(x)
		return ok && f != 0
	}
	return false
}

// Day coerces v to a YYYY-MM-DD calendar day in loc. Strings that name
// their own zone or offset keep the day written in that zone. Values that
// cannot be read as a date resolve to the day of now.
func Day(v any, now time.Time, loc *time.Location) string {
	today := now.In(loc).Format(domain.DayLayout)
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return today
		}
		return x.In(loc).Format(domain.DayLayout)
	case string:
		s := strings.TrimSpace(x)
		if isoDay.MatchString(s) {
			return s
		}
		t, err := dateparse.ParseIn(s, loc)
		if err != nil {
			return today
		}
		return t.Format(domain.DayLayout)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return today
		}
		return serialDay(f, today)
	case float64, float32, int, int64, int32:
		f, ok := Float(x)
		if !ok {
			return today
		}
		return serialDay(f, today)
	}
	return today
}

// SerialToDay converts a spreadsheet serial date to YYYY-MM-DD. The
// fractional (time of day) part is ignored.
func SerialToDay(serial float64) (string, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > maxSerial {
		return "", false
	}
	days := int(math.Floor(serial))
	return serialEpoch.AddDate(0, 0, days).Format(domain.DayLayout), true
}

func serialDay(serial float64, fallback string) string {
	if d, ok := SerialToDay(serial); ok {
		return d
	}
	return fallback
}
