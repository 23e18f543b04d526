package perfmetrics

import (
	"sync"

	"github.com/perfmetrics/perfmetrics/statsd"
)

// ClientStack is a LIFO of clients that temporarily override the default
// client. It is safe for concurrent use; all goroutines share one stack.
type ClientStack struct {
	mtx     sync.RWMutex
	entries []*stackEntry
}

type stackEntry struct {
	e statsd.Emitter
}

// Stack is the process-wide client stack consulted by StatsdClient.
var Stack = &ClientStack{}

// Push makes e the active client. The returned release func removes exactly
// this entry, wherever it is in the stack by then; it is idempotent and
// meant to be deferred.
func (s *ClientStack) Push(e statsd.Emitter) (release func()) {
	entry := &stackEntry{e: e}
	s.mtx.Lock()
	s.entries = append(s.entries, entry)
	s.mtx.Unlock()

	var once sync.Once
	return func() { once.Do(func() { s.remove(entry) }) }
}

func (s *ClientStack) remove(entry *stackEntry) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i] == entry {
			copy(s.entries[i:], s.entries[i+1:])
			s.entries[len(s.entries)-1] = nil
			s.entries = s.entries[:len(s.entries)-1]
			return
		}
	}
}

// Pop removes and returns the top client, or nil if the stack is empty.
func (s *ClientStack) Pop() statsd.Emitter {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	n := len(s.entries)
	if n == 0 {
		return nil
	}
	top := s.entries[n-1]
	s.entries[n-1] = nil
	s.entries = s.entries[:n-1]
	return top.e
}

// Get returns the top client without removing it, or nil.
func (s *ClientStack) Get() statsd.Emitter {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if n := len(s.entries); n > 0 {
		return s.entries[n-1].e
	}
	return nil
}

// Len returns the number of pushed clients.
func (s *ClientStack) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.entries)
}

// Clear removes every client.
func (s *ClientStack) Clear() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.entries = nil
}

// With runs f with e pushed onto the stack, and pops it on every exit path,
// including a panic in f.
func (s *ClientStack) With(e statsd.Emitter, f func()) {
	release := s.Push(e)
	defer release()
	f()
}

// With runs f with e pushed onto the process-wide Stack.
func With(e statsd.Emitter, f func()) {
	Stack.With(e, f)
}
