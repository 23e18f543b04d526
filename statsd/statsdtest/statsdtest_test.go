package statsdtest

import (
	"net"
	"testing"
	"time"
)

func TestListenerLines(t *testing.T) {
	l := NewListener(t)
	conn, err := net.Dial("udp", l.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.Write([]byte("a:1|c\nb:2|ms"))

	lines := l.Lines(t)
	if want, have := 2, len(lines); want != have {
		t.Fatalf("want %d lines, have %d", want, have)
	}
	if want, have := "b", lines[1].Stat; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestListenerStopsWithFullQueue(t *testing.T) {
	var l *Listener
	t.Run("flood", func(t *testing.T) {
		l = NewListener(t)
		conn, err := net.Dial("udp", l.Addr())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		for i := 0; i < 2*cap(l.packets); i++ {
			conn.Write([]byte("a:1|c"))
		}
		deadline := time.Now().Add(time.Second)
		for len(l.packets) < cap(l.packets) && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	})

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-l.packets:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("listener still running after its test ended")
		}
	}
}
