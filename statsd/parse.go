package statsd

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseLine parses a single "stat:value|kind[|@rate]" line. A missing rate
// parses as 1. Signed gauge values parse as GaugeIncrease or GaugeDecrease
// with the sign removed from Value.
func ParseLine(s string) (Line, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		return Line{}, errors.Errorf("statsd: missing ':' in %q", s)
	}
	l := Line{Stat: s[:colon], Rate: 1}
	if err := ValidateStat(l.Stat); err != nil {
		return Line{}, err
	}

	fields := strings.Split(s[colon+1:], "|")
	if len(fields) < 2 || len(fields) > 3 {
		return Line{}, errors.Errorf("statsd: malformed line %q", s)
	}
	l.Value, l.Kind = fields[0], Kind(fields[1])
	if l.Value == "" {
		return Line{}, errors.Errorf("statsd: empty value in %q", s)
	}
	if l.Kind == GaugeIncrease || l.Kind == GaugeDecrease || !l.Kind.valid() {
		return Line{}, errors.Errorf("statsd: unknown kind %q in %q", fields[1], s)
	}
	if l.Kind == Gauge {
		switch l.Value[0] {
		case '+':
			l.Kind, l.Value = GaugeIncrease, l.Value[1:]
		case '-':
			l.Kind, l.Value = GaugeDecrease, l.Value[1:]
		}
	}
	if l.Kind != Set {
		if _, err := strconv.ParseFloat(l.Value, 64); err != nil {
			return Line{}, errors.Wrapf(err, "statsd: bad value in %q", s)
		}
	}

	if len(fields) == 3 {
		if !strings.HasPrefix(fields[2], "@") {
			return Line{}, errors.Errorf("statsd: bad sample rate in %q", s)
		}
		rate, err := strconv.ParseFloat(fields[2][1:], 64)
		if err != nil {
			return Line{}, errors.Wrapf(err, "statsd: bad sample rate in %q", s)
		}
		if rate <= 0 || rate > 1 {
			return Line{}, errors.Errorf("statsd: sample rate out of range in %q", s)
		}
		l.Rate = rate
	}
	return l, nil
}

// ParsePacket parses every newline-separated line of a datagram. Empty lines
// are skipped. Parsing stops at the first malformed line.
func ParsePacket(p []byte) ([]Line, error) {
	var lines []Line
	for _, raw := range bytes.Split(p, []byte{'\n'}) {
		raw = bytes.TrimRight(raw, "\r")
		if len(raw) == 0 {
			continue
		}
		l, err := ParseLine(string(raw))
		if err != nil {
			return lines, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}
