package network

import (
	"encoding/json"
	"fmt"
	"time"
)

type MessageType string

const (
	MessageObserverHello  MessageType = "observerHello"
	MessageWelcome        MessageType = "welcome"
	MessageObserverUpdate MessageType = "observerUpdate"
	MessageObserverBye    MessageType = "observerBye"
	MessageVisibleChunks  MessageType = "visibleChunks"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// ObserverHello opens a session. Name is informational.
type ObserverHello struct {
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type Welcome struct {
	ServerID  string `json:"serverId"`
	SessionID string `json:"sessionId"`
	ChunkSize int    `json:"chunkSize"`
}

// ObserverUpdate reports a world-space observer position.
type ObserverUpdate struct {
	SessionID string  `json:"sessionId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type ObserverBye struct {
	SessionID string `json:"sessionId"`
}

type ChunkState struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	State string `json:"state"`
	LOD   int    `json:"lod"`
}

type Viewer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VisibleChunks is pushed to every live session on the stream interval.
type VisibleChunks struct {
	ServerID string       `json:"serverId"`
	Seq      uint64       `json:"seq"`
	Viewer   Viewer       `json:"viewer"`
	Chunks   []ChunkState `json:"chunks"`
	Known    int          `json:"known"`
	Pending  int          `json:"pending"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// DecodePayload unmarshals the envelope payload into v.
func DecodePayload(env Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}
