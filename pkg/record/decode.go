package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedField is returned for tokens that are not key=value pairs.
	ErrMalformedField = errors.New("malformed field")

	// ErrCoercion is returned when a value does not parse as the type its
	// key declares.
	ErrCoercion = errors.New("value does not match field type")
)

// FieldError describes a single field that could not be decoded.
type FieldError struct {
	Token string
	Key   string
	Value string
	// Want is the kind the key declares; KindMissing for malformed tokens.
	Want Kind
	// Err is ErrMalformedField or ErrCoercion.
	Err error
	// Cause is the underlying parse error, if any.
	Cause error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMalformedField) {
		if e.Cause != nil {
			return fmt.Sprintf("%v %q: %v", e.Err, e.Token, e.Cause)
		}
		return fmt.Sprintf("%v %q", e.Err, e.Token)
	}
	msg := fmt.Sprintf("field %q: value %q is not a valid %s", e.Key, e.Value, e.Want)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *FieldError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// DecodeFunc converts a raw field value into a Value.
type DecodeFunc func(raw string) (Value, error)

// Rule binds a declared kind to the function that produces it.
type Rule struct {
	Kind   Kind
	Decode DecodeFunc
}

type suffixRule struct {
	suffix string
	rule   Rule
}

// FieldTable maps field keys to decoders: exact keys first, then key
// suffixes in declaration order, then the fallback rule.
type FieldTable struct {
	name     string
	exact    map[string]Rule
	suffixes []suffixRule
	fallback Rule
}

// Name identifies the table in diagnostics.
func (t *FieldTable) Name() string { return t.name }

// Lookup returns the rule that applies to key.
func (t *FieldTable) Lookup(key string) Rule {
	if r, ok := t.exact[key]; ok {
		return r
	}
	for _, s := range t.suffixes {
		if strings.HasSuffix(key, s.suffix) {
			return s.rule
		}
	}
	return t.fallback
}

// Decode converts raw according to the rule for key.
func (t *FieldTable) Decode(key, raw string) (Value, error) {
	rule := t.Lookup(key)
	v, err := rule.Decode(raw)
	if err != nil {
		return Value{}, &FieldError{
			Token: key + "=" + raw,
			Key:   key,
			Value: raw,
			Want:  rule.Kind,
			Err:   ErrCoercion,
			Cause: err,
		}
	}
	return v, nil
}

// DecodeTokens decodes key=value tokens into a Record. The event kind
// token must already be removed by the caller.
func (t *FieldTable) DecodeTokens(tokens []string) (Record, error) {
	rec := make(Record, len(tokens))
	for _, tok := range tokens {
		key, raw, err := SplitToken(tok)
		if err != nil {
			return nil, err
		}
		if _, dup := rec[key]; dup {
			return nil, &FieldError{Token: tok, Key: key, Value: raw, Err: ErrMalformedField,
				Cause: errors.New("duplicate key")}
		}
		v, err := t.Decode(key, raw)
		if err != nil {
			return nil, err
		}
		rec[key] = v
	}
	return rec, nil
}

// SplitToken splits a key=value token. The token must contain exactly one
// '=' and a non-empty key.
func SplitToken(tok string) (key, value string, err error) {
	if strings.Count(tok, "=") != 1 {
		return "", "", &FieldError{Token: tok, Err: ErrMalformedField,
			Cause: errors.New("want exactly one '='")}
	}
	key, value, _ = strings.Cut(tok, "=")
	if key == "" {
		return "", "", &FieldError{Token: tok, Err: ErrMalformedField, Cause: errors.New("empty key")}
	}
	return key, value, nil
}

// TraceFields is the key contract for systemtap event lines.
var TraceFields = &FieldTable{
	name: "trace",
	exact: map[string]Rule{
		"t":        {KindTimestamp, decodeEpochSeconds},
		"elapsed":  {KindDuration, decodeSeconds},
		"reason":   {KindText, decodeText},
		"progress": {KindFloat, decodeMillionths},
	},
	suffixes: []suffixRule{
		{":time", Rule{KindDuration, decodeMicros}},
		{":bytes", Rule{KindInt, decodeInt}},
		{":count", Rule{KindInt, decodeInt}},
	},
	fallback: Rule{KindInt, decodeInt},
}

// HostFields is the key contract for system section lines.
var HostFields = &FieldTable{
	name:  "host",
	exact: map[string]Rule{},
	suffixes: []suffixRule{
		{":bytes", Rule{KindInt, decodeInt}},
		{":count", Rule{KindInt, decodeInt}},
	},
	fallback: Rule{KindText, decodeText},
}

// DecodeTokens decodes trace tokens with TraceFields.
func DecodeTokens(tokens []string) (Record, error) {
	return TraceFields.DecodeTokens(tokens)
}

var (
	maxNanos = decimal.NewFromInt(math.MaxInt64)
	minNanos = decimal.NewFromInt(math.MinInt64)
)

// parseNanos converts a decimal seconds string to integer nanoseconds
// without going through float64.
func parseNanos(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	ns := d.Shift(9).Round(0)
	if ns.GreaterThan(maxNanos) || ns.LessThan(minNanos) {
		return 0, errors.New("out of range")
	}
	return ns.IntPart(), nil
}

func decodeEpochSeconds(raw string) (Value, error) {
	ns, err := parseNanos(raw)
	if err != nil {
		return Value{}, err
	}
	return Timestamp(time.Unix(0, ns)), nil
}

func decodeSeconds(raw string) (Value, error) {
	ns, err := parseNanos(raw)
	if err != nil {
		return Value{}, err
	}
	return Duration(time.Duration(ns)), nil
}

func decodeMicros(raw string) (Value, error) {
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, err
	}
	if us > math.MaxInt64/int64(time.Microsecond) || us < math.MinInt64/int64(time.Microsecond) {
		return Value{}, errors.New("out of range")
	}
	return Duration(time.Duration(us) * time.Microsecond), nil
}

var million = decimal.NewFromInt(1_000_000)

func decodeMillionths(raw string) (Value, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Value{}, err
	}
	f := d.Div(million).InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, errors.New("out of range")
	}
	return Float(f), nil
}

func decodeInt(raw string) (Value, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, err
	}
	return Int(n), nil
}

func decodeText(raw string) (Value, error) {
	return Text(raw), nil
}
