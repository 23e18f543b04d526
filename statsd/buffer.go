package statsd

// Buffer collects encoded observations so several can be sent in one
// SendBuf call. Each entry holds the lines of one observation, joined by
// newlines, and is never split across packets. The caller owns the buffer;
// SendBuf does not reset it.
type Buffer struct {
	entries []string

	// Sampled reports that the caller already made the sampling decision
	// for everything appended to this buffer. Emitters must not sample
	// again, but still record the rate on the wire.
	Sampled bool
}

// Append adds an encoded entry.
func (b *Buffer) Append(entry string) { b.entries = append(b.entries, entry) }

// Lines returns the buffered entries in the order they were appended.
func (b *Buffer) Lines() []string {
	if b == nil {
		return nil
	}
	return b.entries
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() { b.entries = b.entries[:0] }
