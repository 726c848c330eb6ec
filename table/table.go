// Package table holds heterogeneously-typed record tables and their JSON
// normalization.
package table

import (
	"fmt"
	"strings"
	"time"
)

// Record maps a field name to its value.
type Record map[string]Value

// Table is an ordered sequence of records.
type Table []Record

// Empty reports whether t has no rows.
func (t Table) Empty() bool { return len(t) == 0 }

// Filter returns the rows for which keep returns true, in order.
func (t Table) Filter(keep func(Record) bool) Table {
	out := make(Table, 0, len(t))
	for _, rec := range t {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns the value of field, or Missing when the field is absent.
func (r Record) Get(field string) Value {
	return r[field]
}

// Normalize converts t into a slice of flat JSON-compatible maps. A nil or
// empty table yields an empty, non-nil slice. t is never modified.
func Normalize(t Table) []map[string]any {
	out := make([]map[string]any, 0, len(t))
	for _, rec := range t {
		row := make(map[string]any, len(rec))
		for field, v := range rec {
			row[field] = v.JSON()
		}
		out = append(out, row)
	}
	return out
}

// FormatDuration renders d in the pandas Timedelta text form, for example
// "0 days 00:01:23.456000" or "-1 days +23:59:59".
func FormatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	days := d / day
	rem := d % day
	if rem < 0 {
		rem += day
		days--
	}
	h := rem / time.Hour
	rem -= h * time.Hour
	m := rem / time.Minute
	rem -= m * time.Minute
	s := rem / time.Second
	ns := rem % time.Second

	sign := ""
	if days < 0 {
		sign = "+"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d days %s%02d:%02d:%02d", days, sign, h, m, s)
	b.WriteString(fraction(int(ns)))
	return b.String()
}

// FormatTimestamp renders t as ISO-8601. Naive timestamps carry no offset.
func FormatTimestamp(t time.Time, naive bool) string {
	s := t.Format("2006-01-02T15:04:05") + fraction(t.Nanosecond())
	if naive {
		return s
	}
	return s + t.Format("-07:00")
}

// fraction uses microsecond precision unless nanoseconds are present.
func fraction(ns int) string {
	switch {
	case ns == 0:
		return ""
	case ns%1000 == 0:
		return fmt.Sprintf(".%06d", ns/1000)
	default:
		return fmt.Sprintf(".%09d", ns)
	}
}
