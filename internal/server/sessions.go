package server

import (
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	id       string
	name     string
	addr     *net.UDPAddr
	lastSeen time.Time
}

// sessionRegistry is shared between network handlers and the tick loop.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) open(addr *net.UDPAddr, name string, now time.Time) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &session{id: id, name: name, addr: addr, lastSeen: now}
	r.mu.Unlock()
	return id
}

// touch refreshes a session and follows the peer if its address changed.
func (r *sessionRegistry) touch(id string, addr *net.UDPAddr, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.lastSeen = now
	if addr != nil {
		s.addr = addr
	}
	return true
}

func (r *sessionRegistry) close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// expire drops sessions idle for longer than timeout and returns their ids.
func (r *sessionRegistry) expire(now time.Time, timeout time.Duration) []string {
	if timeout <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []string
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > timeout {
			expired = append(expired, id)
			delete(r.sessions, id)
		}
	}
	sort.Strings(expired)
	return expired
}

func (r *sessionRegistry) targets() []*net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*net.UDPAddr, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.addr)
	}
	return out
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
