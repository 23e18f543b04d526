package statsd

import (
	"errors"
	"testing"
)

func TestParseURI(t *testing.T) {
	for _, testcase := range []struct {
		uri  string
		want Endpoint
	}{
		{"statsd://localhost:8129", Endpoint{Host: "localhost", Port: 8129}},
		{"statsd://example.com", Endpoint{Host: "example.com", Port: DefaultPort}},
		{"statsd://", Endpoint{Host: "localhost", Port: DefaultPort}},
		{"statsd://[::1]:9000", Endpoint{Host: "::1", Port: 9000}},
		{"statsd://localhost:8129?gauge_suffix=.spamalot", Endpoint{Host: "localhost", Port: 8129, GaugeSuffix: ".spamalot"}},
		{
			"statsd://h:1?prefix=app.&sample_rate=0.5&max_packet_size=1400&unknown=1",
			Endpoint{Host: "h", Port: 1, Prefix: "app.", SampleRate: 0.5, MaxPacketSize: 1400},
		},
	} {
		have, err := ParseURI(testcase.uri)
		if err != nil {
			t.Errorf("%s: %v", testcase.uri, err)
			continue
		}
		if want := testcase.want; want != have {
			t.Errorf("%s: want %+v, have %+v", testcase.uri, want, have)
		}
	}
}

func TestParseURIUnsupportedScheme(t *testing.T) {
	for _, uri := range []string{"http://localhost:8125", "udp://localhost:8125", "localhost"} {
		_, err := ParseURI(uri)
		var e *UnsupportedSchemeError
		if !errors.As(err, &e) {
			t.Errorf("%s: want UnsupportedSchemeError, have %v", uri, err)
		}
	}
}

func TestParseURIBadOptions(t *testing.T) {
	for _, uri := range []string{
		"statsd://h:notaport",
		"statsd://h:0",
		"statsd://h?sample_rate=abc",
		"statsd://h?sample_rate=2",
		"statsd://h?sample_rate=0",
		"statsd://h?max_packet_size=big",
	} {
		if ep, err := ParseURI(uri); err == nil {
			t.Errorf("%s: want error, have %+v", uri, ep)
		}
	}
}

func TestEndpointAddress(t *testing.T) {
	for _, testcase := range []struct {
		ep   Endpoint
		want string
	}{
		{Endpoint{Host: "localhost", Port: 8125}, "localhost:8125"},
		{Endpoint{Host: "localhost"}, "localhost:8125"},
		{Endpoint{Host: "::1", Port: 1}, "[::1]:1"},
	} {
		if want, have := testcase.want, testcase.ep.Address(); want != have {
			t.Errorf("want %q, have %q", want, have)
		}
	}
}
