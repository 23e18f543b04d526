package statsd

import "strconv"

// DefaultMaxPacketSize keeps datagrams well below common path MTUs.
const DefaultMaxPacketSize = 512 // bytes

// PacketTooLargeError is returned for an observation whose encoded lines do
// not fit in a single packet.
type PacketTooLargeError struct {
	Stat string
	Size int
	Max  int
}

func (e *PacketTooLargeError) Error() string {
	return "statsd: " + strconv.Quote(e.Stat) + " encodes to " + strconv.Itoa(e.Size) +
		" bytes, more than the maximum packet size of " + strconv.Itoa(e.Max)
}

// Pack joins entries with newlines into packets of at most max bytes. An
// entry is never split across packets, and an entry longer than max is
// dropped. If max is not positive, all entries go into one packet.
func Pack(entries []string, max int) [][]byte {
	var (
		packets [][]byte
		cur     []byte
	)
	for _, entry := range entries {
		if max > 0 && len(entry) > max {
			continue
		}
		if len(cur) > 0 && max > 0 && len(cur)+1+len(entry) > max {
			packets = append(packets, cur)
			cur = nil
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, entry...)
	}
	if len(cur) > 0 {
		packets = append(packets, cur)
	}
	return packets
}
