package network

import (
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Client is a connected UDP peer of a Server.
type Client struct {
	conn    *net.UDPConn
	maxSize int
	seq     atomic.Uint64
}

func Dial(addr string, maxSize int) (*Client, error) {
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	target, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve server: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Client{conn: conn, maxSize: maxSize}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Send(msg MessageType, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	data, err := Encode(Envelope{
		Type:      msg,
		Timestamp: time.Now().UTC(),
		Seq:       c.seq.Add(1),
		Payload:   raw,
	})
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// Receive waits up to timeout for the next envelope.
func (c *Client) Receive(timeout time.Duration) (Envelope, error) {
	buf := make([]byte, c.maxSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Envelope{}, err
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		return Envelope{}, err
	}
	return Decode(buf[:n])
}

// Expect receives until an envelope of type msg arrives and decodes its
// payload into v. Other message types are skipped.
func (c *Client) Expect(msg MessageType, v any, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("timed out waiting for %s", msg)
		}
		env, err := c.Receive(remaining)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", msg, err)
		}
		if env.Type != msg {
			continue
		}
		if v == nil {
			return nil
		}
		return json.Unmarshal(env.Payload, v)
	}
}
