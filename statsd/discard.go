package statsd

// Discard is an Emitter that does nothing. It is useful as an explicit
// "metrics off" client, e.g. to shadow a configured default in tests.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Count(string, int64, float64, *Buffer) error    { return nil }
func (discard) Timing(string, float64, float64, *Buffer) error { return nil }
func (discard) SendBuf(*Buffer)                                {}
