// Package record decodes trace and host-info fields into typed values.
package record

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindMissing marks a field that was absent from a record.
	// It is the zero Kind, so the zero Value is the missing placeholder.
	KindMissing Kind = iota
	KindTimestamp
	KindDuration
	KindInt
	KindFloat
	KindText
)

var kindNames = [...]string{
	KindMissing:   "missing",
	KindTimestamp: "timestamp",
	KindDuration:  "duration",
	KindInt:       "int",
	KindFloat:     "float",
	KindText:      "text",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged union over the field types found in trace logs.
// The zero Value is Missing and never compares equal to Int(0).
type Value struct {
	kind Kind
	i    int64 // Int, Duration (ns), Timestamp (unix ns)
	f    float64
	s    string
}

// Missing returns the placeholder used for fields absent from a record.
func Missing() Value { return Value{} }

// Timestamp returns a Timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, i: t.UnixNano()} }

// Duration returns a Duration value.
func Duration(d time.Duration) Value { return Value{kind: KindDuration, i: int64(d)} }

// Int returns an Int value.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Float returns a Float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a Text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing placeholder.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Time returns the timestamp held by v.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTimestamp {
		return time.Time{}, false
	}
	return time.Unix(0, v.i).UTC(), true
}

// Duration returns the duration held by v.
func (v Value) Duration() (time.Duration, bool) {
	if v.kind != KindDuration {
		return 0, false
	}
	return time.Duration(v.i), true
}

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the float held by v.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// Text returns the string held by v.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// Number returns v as a float64 for charting. Timestamps become unix
// seconds and durations seconds. Missing and Text values report false.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindDuration:
		return time.Duration(v.i).Seconds(), true
	case KindTimestamp:
		return float64(v.i) / 1e9, true
	default:
		return 0, false
	}
}

// String formats v for display. Missing values print as "-".
func (v Value) String() string {
	switch v.kind {
	case KindTimestamp:
		t, _ := v.Time()
		return t.Format(time.RFC3339Nano)
	case KindDuration:
		return time.Duration(v.i).String()
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	default:
		return "-"
	}
}

// MarshalJSON encodes missing as null, timestamps as RFC 3339 strings and
// durations as integer nanoseconds.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.plain())
}

// MarshalYAML uses the same mapping as MarshalJSON.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.plain(), nil
}

func (v Value) plain() interface{} {
	switch v.kind {
	case KindTimestamp:
		return v.String()
	case KindDuration, KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	default:
		return nil
	}
}

// Record maps field keys to values for one parsed line.
type Record map[string]Value

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for key, or Missing when the key is absent.
func (r Record) Get(key string) Value {
	return r[key]
}
