package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxDatagram = 64 * 1024
	readPollInterval   = 500 * time.Millisecond
)

// Handler processes one inbound envelope. Handlers run on their own goroutine
// and must synchronise any state they share.
type Handler func(ctx context.Context, from *net.UDPAddr, env Envelope)

// Traffic counts datagrams seen by a Server.
type Traffic struct {
	Received  uint64
	Sent      uint64
	Malformed uint64
	Unhandled uint64
}

// Server is a JSON-over-UDP endpoint dispatching envelopes by message type.
type Server struct {
	conn    *net.UDPConn
	logger  *log.Logger
	maxSize int
	seq     atomic.Uint64

	received  atomic.Uint64
	sent      atomic.Uint64
	malformed atomic.Uint64
	unhandled atomic.Uint64

	mu       sync.RWMutex
	handlers map[MessageType][]Handler
}

func Listen(listenAddr string, logger *log.Logger, maxSize int) (*Server, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxDatagram
	}
	if logger == nil {
		logger = log.New(log.Writer(), "network ", log.LstdFlags|log.Lmicroseconds)
	}
	local, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %q: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", local, err)
	}
	return &Server{
		conn:     conn,
		logger:   logger,
		maxSize:  maxSize,
		handlers: make(map[MessageType][]Handler),
	}, nil
}

func (s *Server) Close() error {
	return s.conn.Close()
}

// LocalAddr is the bound address, useful when listening on port 0.
func (s *Server) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

func (s *Server) Register(msgType MessageType, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = append(s.handlers[msgType], handler)
}

func (s *Server) Traffic() Traffic {
	return Traffic{
		Received:  s.received.Load(),
		Sent:      s.sent.Load(),
		Malformed: s.malformed.Load(),
		Unhandled: s.unhandled.Load(),
	}
}

// Serve reads datagrams until ctx is cancelled or the socket fails. It returns
// ctx.Err() on cancellation.
func (s *Server) Serve(ctx context.Context) error {
	buf := make([]byte, s.maxSize)
	for ctx.Err() == nil {
		data, from, err := s.read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		s.dispatch(ctx, from, data)
	}
	return ctx.Err()
}

func (s *Server) read(buf []byte) ([]byte, *net.UDPAddr, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
		return nil, nil, err
	}
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	s.received.Add(1)
	return append([]byte(nil), buf[:n]...), from, nil
}

func (s *Server) dispatch(ctx context.Context, from *net.UDPAddr, data []byte) {
	env, err := Decode(data)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Printf("drop malformed datagram from %s: %v", from, err)
		return
	}

	s.mu.RLock()
	handlers := append([]Handler(nil), s.handlers[env.Type]...)
	s.mu.RUnlock()

	if len(handlers) == 0 {
		s.unhandled.Add(1)
		return
	}
	for _, h := range handlers {
		go h(ctx, from, env)
	}
}

func (s *Server) Send(addr string, msg MessageType, payload any) error {
	target, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	return s.SendTo(target, msg, payload)
}

// SendTo writes one envelope to an already resolved peer.
func (s *Server) SendTo(target *net.UDPAddr, msg MessageType, payload any) error {
	data, err := s.envelope(msg, payload)
	if err != nil {
		return err
	}
	if len(data) > s.maxSize {
		return fmt.Errorf("%s message of %d bytes exceeds datagram limit %d", msg, len(data), s.maxSize)
	}
	if _, err := s.conn.WriteToUDP(data, target); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg, target, err)
	}
	s.sent.Add(1)
	return nil
}

func (s *Server) envelope(msg MessageType, payload any) ([]byte, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	return Encode(Envelope{
		Type:      msg,
		Timestamp: time.Now().UTC(),
		Seq:       s.seq.Add(1),
		Payload:   raw,
	})
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}
