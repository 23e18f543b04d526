package statsd

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the statsd metric type of a line.
// Definitions from https://github.com/statsd/statsd/blob/master/docs/metric_types.md.
type Kind string

// Metric kinds understood by statsd collectors. GaugeIncrease and
// GaugeDecrease are relative gauge adjustments; on the wire they are written
// as a signed gauge value, e.g. "name:+5|g".
const (
	Counter       Kind = "c"
	Timer         Kind = "ms"
	Gauge         Kind = "g"
	GaugeIncrease Kind = "+g"
	GaugeDecrease Kind = "-g"
	Set           Kind = "s"
)

func (k Kind) valid() bool {
	switch k {
	case Counter, Timer, Gauge, GaugeIncrease, GaugeDecrease, Set:
		return true
	}
	return false
}

// Line is a single metric observation.
type Line struct {
	Stat  string
	Value string
	Kind  Kind
	Rate  float64
}

// InvalidStatNameError is returned when a stat name (or set member) cannot
// be written to the wire unmodified.
type InvalidStatNameError struct {
	Stat   string
	Reason string
}

func (e *InvalidStatNameError) Error() string {
	return "statsd: invalid stat name " + strconv.Quote(e.Stat) + ": " + e.Reason
}

// InvalidValueError is returned for a value that cannot be written to the
// wire with its meaning intact, such as NaN, an infinity, or a signed
// gauge delta magnitude.
type InvalidValueError struct {
	Stat   string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return "statsd: invalid value " + strconv.Quote(e.Value) + " for " + strconv.Quote(e.Stat) + ": " + e.Reason
}

// ValidateStat checks that stat is non-empty printable ASCII without
// whitespace, ':' or '|'.
func ValidateStat(stat string) error {
	if stat == "" {
		return &InvalidStatNameError{Stat: stat, Reason: "empty"}
	}
	if i := strings.IndexFunc(stat, illegal); i >= 0 {
		r, _ := utf8.DecodeRuneInString(stat[i:])
		return &InvalidStatNameError{Stat: stat, Reason: "illegal character " + strconv.QuoteRune(r)}
	}
	return nil
}

func illegal(r rune) bool {
	return r < 0x21 || r > 0x7e || r == ':' || r == '|'
}

// Encode renders the line as "stat:value|kind" with an "|@rate" suffix when
// the rate is below 1. A zero Rate is treated as unsampled.
func (l Line) Encode() (string, error) {
	if err := ValidateStat(l.Stat); err != nil {
		return "", err
	}
	if !l.Kind.valid() {
		return "", &InvalidStatNameError{Stat: l.Stat, Reason: "unknown kind " + strconv.Quote(string(l.Kind))}
	}
	if err := l.validateValue(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(l.Stat) + len(l.Value) + 16)
	b.WriteString(l.Stat)
	b.WriteByte(':')
	switch l.Kind {
	case GaugeIncrease:
		b.WriteByte('+')
		b.WriteString(l.Value)
		b.WriteString("|g")
	case GaugeDecrease:
		b.WriteByte('-')
		b.WriteString(l.Value)
		b.WriteString("|g")
	default:
		b.WriteString(l.Value)
		b.WriteByte('|')
		b.WriteString(string(l.Kind))
	}
	if l.Rate > 0 && l.Rate < 1 {
		b.WriteString("|@")
		b.WriteString(FormatValue(l.Rate))
	}
	return b.String(), nil
}

func (l Line) validateValue() error {
	if l.Value == "" {
		return &InvalidValueError{Stat: l.Stat, Value: l.Value, Reason: "empty"}
	}
	if i := strings.IndexFunc(l.Value, illegal); i >= 0 {
		r, _ := utf8.DecodeRuneInString(l.Value[i:])
		return &InvalidValueError{Stat: l.Stat, Value: l.Value, Reason: "illegal character " + strconv.QuoteRune(r)}
	}
	if l.Kind == Set {
		return nil
	}
	v, err := strconv.ParseFloat(l.Value, 64)
	if err != nil {
		return &InvalidValueError{Stat: l.Stat, Value: l.Value, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidValueError{Stat: l.Stat, Value: l.Value, Reason: "not finite"}
	}
	if (l.Kind == GaugeIncrease || l.Kind == GaugeDecrease) && (l.Value[0] == '+' || l.Value[0] == '-') {
		return &InvalidValueError{Stat: l.Stat, Value: l.Value, Reason: "gauge delta must be unsigned"}
	}
	return nil
}

// Encode renders a numeric observation. See Line.Encode.
func Encode(stat string, value float64, kind Kind, rate float64) (string, error) {
	return Line{Stat: stat, Value: FormatValue(value), Kind: kind, Rate: rate}.Encode()
}

// FormatValue renders v as the shortest decimal that round-trips, never
// using exponent notation. Negative zero is rendered as "0".
func FormatValue(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
