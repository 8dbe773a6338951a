package server

import (
	"net"
	"testing"
	"time"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	reg := newSessionRegistry()
	start := time.Unix(500, 0)
	first := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}
	moved := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4001}

	a := reg.open(first, "a", start)
	b := reg.open(first, "b", start)
	if a == b || a == "" {
		t.Fatalf("session ids not unique: %q %q", a, b)
	}
	if reg.len() != 2 {
		t.Fatalf("len = %d, want 2", reg.len())
	}

	if !reg.touch(a, moved, start.Add(20*time.Second)) {
		t.Fatalf("touch of live session failed")
	}
	if reg.touch("missing", moved, start) {
		t.Fatalf("touch of unknown session succeeded")
	}

	expired := reg.expire(start.Add(31*time.Second), 30*time.Second)
	if len(expired) != 1 || expired[0] != b {
		t.Fatalf("expired = %v, want [%s]", expired, b)
	}

	targets := reg.targets()
	if len(targets) != 1 || targets[0].Port != moved.Port {
		t.Fatalf("targets = %v", targets)
	}

	if !reg.close(a) {
		t.Fatalf("close of live session failed")
	}
	if reg.close(a) {
		t.Fatalf("second close succeeded")
	}
	if reg.len() != 0 {
		t.Fatalf("len = %d after close", reg.len())
	}
}

func TestSessionRegistryZeroTimeoutKeepsSessions(t *testing.T) {
	reg := newSessionRegistry()
	reg.open(&net.UDPAddr{Port: 1}, "", time.Unix(0, 0))
	if expired := reg.expire(time.Unix(1e6, 0), 0); len(expired) != 0 {
		t.Fatalf("expired %v with timeout disabled", expired)
	}
}
