package table

import (
	"math"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindBool
	KindTimestamp
	KindDuration
)

// Value is a single cell of a Table. The zero Value is Missing.
type Value struct {
	kind  Kind
	s     string
	f     float64
	b     bool
	t     time.Time
	naive bool
	d     time.Duration
}

func Missing() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Number(f float64) Value { return Value{kind: KindNumber, f: f} }

func Int(i int) Value { return Number(float64(i)) }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Timestamp holds an instant that serializes with its UTC offset.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// NaiveTimestamp holds a wall-clock time that serializes without an offset.
func NaiveTimestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t, naive: true} }

func Duration(d time.Duration) Value { return Value{kind: KindDuration, d: d} }

// Seconds converts fractional seconds to a Duration value, rounded to the nanosecond.
func Seconds(sec float64) Value {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return Missing()
	}
	return Duration(time.Duration(math.Round(sec * float64(time.Second))))
}

// Optional constructors map a nil pointer to Missing.

func OptString(p *string) Value {
	if p == nil {
		return Missing()
	}
	return String(*p)
}

func OptNumber(p *float64) Value {
	if p == nil {
		return Missing()
	}
	return Number(*p)
}

func OptInt(p *int) Value {
	if p == nil {
		return Missing()
	}
	return Int(*p)
}

func OptSeconds(p *float64) Value {
	if p == nil {
		return Missing()
	}
	return Seconds(*p)
}

func OptTimestamp(p *time.Time) Value {
	if p == nil || p.IsZero() {
		return Missing()
	}
	return Timestamp(*p)
}

// IsMissing reports whether v is Missing or a non-finite number.
func (v Value) IsMissing() bool {
	if v.kind == KindMissing {
		return true
	}
	return v.kind == KindNumber && (math.IsNaN(v.f) || math.IsInf(v.f, 0))
}

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Float() (float64, bool) { return v.f, v.kind == KindNumber && !v.IsMissing() }

func (v Value) Truth() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTimestamp }

func (v Value) Dur() (time.Duration, bool) { return v.d, v.kind == KindDuration }

// JSON returns the JSON-compatible form of v: nil, string, float64 or bool.
func (v Value) JSON() any {
	if v.IsMissing() {
		return nil
	}
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.f
	case KindBool:
		return v.b
	case KindTimestamp:
		return FormatTimestamp(v.t, v.naive)
	case KindDuration:
		return FormatDuration(v.d)
	}
	return nil
}
