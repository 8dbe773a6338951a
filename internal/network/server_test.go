package network

import (
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"
)

func TestServerAndClientExchangeEnvelopes(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", log.New(io.Discard, "", 0), 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer srv.Close()

	hellos := make(chan ObserverHello, 1)
	srv.Register(MessageObserverHello, func(ctx context.Context, addr *net.UDPAddr, env Envelope) {
		var hello ObserverHello
		if err := DecodePayload(env, &hello); err != nil {
			t.Errorf("decode hello: %v", err)
			return
		}
		hellos <- hello
		if err := srv.SendTo(addr, MessageWelcome, Welcome{ServerID: "test", SessionID: "abc", ChunkSize: 238}); err != nil {
			t.Errorf("send welcome: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	client, err := Dial(srv.LocalAddr().String(), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(MessageObserverHello, ObserverHello{Name: "walker", X: 1.5, Y: -2}); err != nil {
		t.Fatalf("send hello: %v", err)
	}

	var welcome Welcome
	if err := client.Expect(MessageWelcome, &welcome, 2*time.Second); err != nil {
		t.Fatalf("expect welcome: %v", err)
	}
	if welcome.SessionID != "abc" || welcome.ChunkSize != 238 {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
	if hello := <-hellos; hello.Name != "walker" || hello.X != 1.5 || hello.Y != -2 {
		t.Fatalf("unexpected hello: %+v", hello)
	}

	cancel()
	select {
	case err := <-served:
		if err != context.Canceled {
			t.Fatalf("serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}

func TestSendToRejectsOversizedMessages(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", log.New(io.Discard, "", 0), 64)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer srv.Close()

	big := VisibleChunks{Chunks: make([]ChunkState, 16)}
	if err := srv.SendTo(srv.LocalAddr(), MessageVisibleChunks, big); err == nil {
		t.Fatalf("expected datagram size error")
	}
}

func TestServeCountsMalformedAndUnhandledDatagrams(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", log.New(io.Discard, "", 0), 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	client, err := Dial(srv.LocalAddr().String(), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.conn.Write([]byte("not an envelope")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := client.Send(MessageType("nobodyListens"), nil); err != nil {
		t.Fatalf("send unhandled: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		traffic := srv.Traffic()
		if traffic.Malformed == 1 && traffic.Unhandled == 1 {
			if traffic.Received != 2 {
				t.Fatalf("received = %d, want 2", traffic.Received)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("traffic = %+v", traffic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
