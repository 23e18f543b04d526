package statsd

import (
	"errors"
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	for _, testcase := range []struct {
		stat  string
		value float64
		kind  Kind
		rate  float64
		want  string
	}{
		{"a.b", 1, Counter, 1, "a.b:1|c"},
		{"a.b", -3, Counter, 1, "a.b:-3|c"},
		{"a.b", 12.5, Timer, 1, "a.b:12.5|ms"},
		{"a.b", 7, Gauge, 1, "a.b:7|g"},
		{"a.b", 7, GaugeIncrease, 1, "a.b:+7|g"},
		{"a.b", 7, GaugeDecrease, 1, "a.b:-7|g"},
		{"a.b", 42, Set, 1, "a.b:42|s"},
		{"a.b", 1, Counter, 0.1, "a.b:1|c|@0.1"},
		{"a.b", 1, Counter, 0.25, "a.b:1|c|@0.25"},
		{"a.b", 1e9, Counter, 1, "a.b:1000000000|c"},
		{"a.b", 0.000001, Timer, 1, "a.b:0.000001|ms"},
		{"a.b", math.Copysign(0, -1), Gauge, 1, "a.b:0|g"},
	} {
		have, err := Encode(testcase.stat, testcase.value, testcase.kind, testcase.rate)
		if err != nil {
			t.Errorf("%s %v %s: %v", testcase.stat, testcase.value, testcase.kind, err)
			continue
		}
		if want := testcase.want; want != have {
			t.Errorf("want %q, have %q", want, have)
		}
	}
}

func TestEncodeRejectsInvalidNames(t *testing.T) {
	for _, stat := range []string{
		"",
		"has space",
		"has:colon",
		"has|pipe",
		"tab\there",
		"new\nline",
		"naïve",
		"\x7f",
	} {
		_, err := Encode(stat, 1, Counter, 1)
		var e *InvalidStatNameError
		if !errors.As(err, &e) {
			t.Errorf("%q: want InvalidStatNameError, have %v", stat, err)
			continue
		}
		if want, have := stat, e.Stat; want != have {
			t.Errorf("want %q, have %q", want, have)
		}
	}
}

func TestEncodeRejectsBadLines(t *testing.T) {
	for _, l := range []Line{
		{Stat: "a", Value: "", Kind: Counter},
		{Stat: "a", Value: "1 2", Kind: Counter},
		{Stat: "a", Value: "1", Kind: "h"},
	} {
		if _, err := l.Encode(); err == nil {
			t.Errorf("%+v: want error, have none", l)
		}
	}
}

func TestEncodeRejectsUnrepresentableValues(t *testing.T) {
	for _, l := range []Line{
		{Stat: "a", Value: "", Kind: Counter},
		{Stat: "a", Value: "NaN", Kind: Timer},
		{Stat: "a", Value: "+Inf", Kind: Gauge},
		{Stat: "a", Value: "-Inf", Kind: Timer},
		{Stat: "a", Value: "Inf", Kind: GaugeIncrease},
		{Stat: "a", Value: "ten", Kind: Counter},
		{Stat: "a", Value: "-3", Kind: GaugeIncrease},
		{Stat: "a", Value: "+3", Kind: GaugeDecrease},
		{Stat: "a", Value: "x:y", Kind: Set},
	} {
		_, err := l.Encode()
		var e *InvalidValueError
		if !errors.As(err, &e) {
			t.Errorf("%+v: want InvalidValueError, have %v", l, err)
		}
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Encode("a", v, Gauge, 1); err == nil {
			t.Errorf("%v: want error, have none", v)
		}
	}
}

func TestFormatValue(t *testing.T) {
	for _, testcase := range []struct {
		v    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{-1.5, "-1.5"},
		{1e21, "1000000000000000000000"},
	} {
		if have := FormatValue(testcase.v); testcase.want != have {
			t.Errorf("%v: want %q, have %q", testcase.v, testcase.want, have)
		}
	}
}

func TestValidateStat(t *testing.T) {
	for _, stat := range []string{"a", "app.module.function", "a-b_c/d", "x@y", "A.B.C"} {
		if err := ValidateStat(stat); err != nil {
			t.Errorf("%q: %v", stat, err)
		}
	}
}
