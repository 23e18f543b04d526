package statsd

import (
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultPort is the conventional statsd UDP port.
const DefaultPort = 8125

// Endpoint describes where and how a Client sends its metrics. Endpoints are
// values; a Client keeps its own copy.
type Endpoint struct {
	Host string
	Port int

	// Prefix is prepended to every stat name.
	Prefix string

	// GaugeSuffix is appended to gauge stat names, e.g. a per-host suffix
	// so that gauges from several processes do not overwrite each other.
	GaugeSuffix string

	// SampleRate is used when a call passes DefaultRate. Zero means 1.
	SampleRate float64

	// MaxPacketSize bounds each datagram. Zero means DefaultMaxPacketSize.
	MaxPacketSize int
}

// Address returns host:port suitable for net.Dial.
func (ep Endpoint) Address() string {
	port := ep.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(ep.Host, strconv.Itoa(port))
}

func (ep Endpoint) sampleRate() float64 {
	if ep.SampleRate <= 0 {
		return 1
	}
	return ep.SampleRate
}

func (ep Endpoint) maxPacketSize() int {
	if ep.MaxPacketSize <= 0 {
		return DefaultMaxPacketSize
	}
	return ep.MaxPacketSize
}

// UnsupportedSchemeError is returned for connection URIs whose scheme is not
// "statsd".
type UnsupportedSchemeError struct {
	URI    string
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return "statsd: unsupported scheme " + strconv.Quote(e.Scheme) + " in " + strconv.Quote(e.URI)
}

// ParseURI parses a connection URI of the form
//
//	statsd://host[:port][?prefix=p&gauge_suffix=s&sample_rate=r&max_packet_size=n]
//
// Unknown query options are ignored.
func ParseURI(uri string) (Endpoint, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "statsd: parse %q", uri)
	}
	if u.Scheme != "statsd" {
		return Endpoint{}, &UnsupportedSchemeError{URI: uri, Scheme: u.Scheme}
	}

	ep := Endpoint{
		Host: u.Hostname(),
		Port: DefaultPort,
	}
	if ep.Host == "" {
		ep.Host = "localhost"
	}
	if p := u.Port(); p != "" {
		if ep.Port, err = strconv.Atoi(p); err != nil || ep.Port <= 0 || ep.Port > 65535 {
			return Endpoint{}, errors.Errorf("statsd: invalid port %q in %q", p, uri)
		}
	}

	q := u.Query()
	ep.Prefix = q.Get("prefix")
	ep.GaugeSuffix = q.Get("gauge_suffix")
	if s := q.Get("sample_rate"); s != "" {
		if ep.SampleRate, err = strconv.ParseFloat(s, 64); err != nil {
			return Endpoint{}, errors.Wrapf(err, "statsd: sample_rate in %q", uri)
		}
		if ep.SampleRate <= 0 || ep.SampleRate > 1 {
			return Endpoint{}, errors.Errorf("statsd: sample_rate %v out of range (0,1] in %q", ep.SampleRate, uri)
		}
	}
	if s := q.Get("max_packet_size"); s != "" {
		if ep.MaxPacketSize, err = strconv.Atoi(s); err != nil {
			return Endpoint{}, errors.Wrapf(err, "statsd: max_packet_size in %q", uri)
		}
	}
	return ep, nil
}
