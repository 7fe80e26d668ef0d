// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/testutil"
)

type sample struct {
	Type   int    `json:"type"`
	Data   any    `json:"data"`
	Sender string `json:"sender,omitempty"`
}

// connPair returns two framed connections joined by an in-memory pipe.
func connPair(t *testing.T, payloadCodec codec.Codec) (*Conn, *Conn) {
	t.Helper()
	left, right := net.Pipe()
	a := NewConn(left, payloadCodec, 5*time.Second)
	b := NewConn(right, payloadCodec, 5*time.Second)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestConnSendReceive(t *testing.T) {
	t.Parallel()
	for _, payloadCodec := range []codec.Codec{codec.JSON, codec.CBOR} {
		t.Run(payloadCodec.Name(), func(t *testing.T) {
			t.Parallel()
			sender, receiver := connPair(t, payloadCodec)

			sent := sample{Type: 2, Data: "hello", Sender: "alice"}
			errs := make(chan error, 1)
			go func() { errs <- sender.Send(sent) }()

			var received sample
			if err := receiver.Receive(&received); err != nil {
				t.Fatalf("Receive: %v", err)
			}
			if err := testutil.RequireReceive(t, errs, 5*time.Second, "send result"); err != nil {
				t.Fatalf("Send: %v", err)
			}
			if !reflect.DeepEqual(received, sent) {
				t.Errorf("received %+v, want %+v", received, sent)
			}
		})
	}
}

func TestConnConcurrentSendsDoNotInterleave(t *testing.T) {
	t.Parallel()
	sender, receiver := connPair(t, codec.JSON)

	const senders = 8
	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sender.Send(sample{Type: 3, Data: string(make([]byte, 4096+i))}); err != nil {
				t.Errorf("Send: %v", err)
			}
		}()
	}

	for range senders {
		var received sample
		if err := receiver.Receive(&received); err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if received.Type != 3 {
			t.Errorf("type = %d, want 3", received.Type)
		}
	}
	wg.Wait()
}

func TestConnWaitReadable(t *testing.T) {
	t.Parallel()
	sender, receiver := connPair(t, codec.JSON)

	ready, err := receiver.WaitReadable(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("WaitReadable on idle connection: %v", err)
	}
	if ready {
		t.Fatal("WaitReadable reported data on an idle connection")
	}

	go sender.Send(sample{Type: 2, Data: "ping"})

	ready, err = receiver.WaitReadable(5 * time.Second)
	if err != nil {
		t.Fatalf("WaitReadable: %v", err)
	}
	if !ready {
		t.Fatal("WaitReadable did not report pending frame")
	}

	// The readiness check consumed nothing.
	var received sample
	if err := receiver.Receive(&received); err != nil {
		t.Fatalf("Receive after WaitReadable: %v", err)
	}
	if received.Data != "ping" {
		t.Errorf("data = %v, want ping", received.Data)
	}
}

func TestConnInterruptWakesWaitReadable(t *testing.T) {
	t.Parallel()
	_, receiver := connPair(t, codec.JSON)

	result := make(chan bool, 1)
	go func() {
		ready, _ := receiver.WaitReadable(time.Minute)
		result <- ready
	}()

	// Interrupt may land before WaitReadable sets its own deadline, so
	// repeat until the waiter returns.
	deadline := time.After(5 * time.Second) //nolint:realclock test hang prevention
	for {
		receiver.Interrupt()
		select {
		case ready := <-result:
			if ready {
				t.Error("interrupted WaitReadable reported data")
			}
			return
		case <-time.After(10 * time.Millisecond): //nolint:realclock retry interval
		case <-deadline:
			t.Fatal("WaitReadable was not interrupted")
		}
	}
}

func TestConnReceive_PeerClosed(t *testing.T) {
	t.Parallel()
	sender, receiver := connPair(t, codec.JSON)
	sender.Close()

	var received sample
	err := receiver.Receive(&received)
	if !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Receive after peer close = %v, want ErrConnectionBroken", err)
	}
}

func TestConnReceive_UndecodablePayload(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	receiver := NewConn(right, codec.JSON, 5*time.Second)
	t.Cleanup(func() {
		left.Close()
		receiver.Close()
	})

	go WriteFrame(left, []byte("{not json"))

	var received sample
	if err := receiver.Receive(&received); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Receive = %v, want ErrConnectionBroken", err)
	}
}

func TestConnReceive_OversizedLength(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	receiver := NewConn(right, codec.JSON, 5*time.Second)
	t.Cleanup(func() {
		left.Close()
		receiver.Close()
	})

	go func() {
		var header [headerLength]byte
		binary.BigEndian.PutUint32(header[:], MaxPayload+1)
		left.Write(header[:])
	}()

	var received sample
	if err := receiver.Receive(&received); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Receive = %v, want ErrConnectionBroken", err)
	}
}

func TestConnReceive_Timeout(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	receiver := NewConn(right, codec.JSON, 30*time.Millisecond)
	t.Cleanup(func() {
		left.Close()
		receiver.Close()
	})

	var received sample
	if err := receiver.Receive(&received); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Receive on silent peer = %v, want ErrConnectionBroken", err)
	}
}

func TestConnReceive_NoTimeoutOutlastsPoll(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	receiver := NewConn(right, codec.JSON, 0)
	t.Cleanup(func() {
		left.Close()
		receiver.Close()
	})

	payload := []byte(`{"type":2,"data":"slow"}`)
	written := make(chan error, 1)
	go func() {
		header := make([]byte, 4)
		binary.BigEndian.PutUint32(header, uint32(len(payload)))
		if _, err := left.Write(header); err != nil {
			written <- err
			return
		}
		// The payload arrives well after the readiness poll's deadline.
		time.Sleep(150 * time.Millisecond)
		_, err := left.Write(payload)
		written <- err
	}()

	ready, err := receiver.WaitReadable(20 * time.Millisecond)
	if err != nil || !ready {
		t.Fatalf("WaitReadable = %v, %v; want true, nil", ready, err)
	}
	var received sample
	if err := receiver.Receive(&received); err != nil {
		t.Fatalf("Receive without a timeout: %v", err)
	}
	if received.Data != "slow" {
		t.Errorf("data = %v, want slow", received.Data)
	}
	if err := testutil.RequireReceive(t, written, 5*time.Second, "write result"); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConnSend_AfterClose(t *testing.T) {
	t.Parallel()
	sender, _ := connPair(t, codec.JSON)
	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Send(sample{Type: 2, Data: "late"}); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Send after Close = %v, want ErrConnectionBroken", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestConnHandshake_PlainConnection(t *testing.T) {
	t.Parallel()
	conn, _ := connPair(t, codec.JSON)
	if err := conn.Handshake(context.Background()); err != nil {
		t.Errorf("Handshake on non-TLS connection = %v, want nil", err)
	}
}
