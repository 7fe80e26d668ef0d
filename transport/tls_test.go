// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/testutil"
)

func listen(t *testing.T, payloadCodec codec.Codec) (*Listener, string) {
	t.Helper()
	certificate, key := testutil.TLSFiles(t)
	listener, err := Listen("127.0.0.1:0", ServerOptions{
		Certificate: certificate,
		Key:         key,
		Timeout:     5 * time.Second,
		Codec:       payloadCodec,
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener, certificate
}

// acceptOne accepts and handshakes a single connection in the
// background.
func acceptOne(t *testing.T, listener *Listener) <-chan *Conn {
	t.Helper()
	accepted := make(chan *Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			close(accepted)
			return
		}
		if err := conn.Handshake(context.Background()); err != nil {
			t.Errorf("Handshake: %v", err)
		}
		accepted <- conn
	}()
	return accepted
}

func TestDialListenRoundTrip(t *testing.T) {
	t.Parallel()
	for _, payloadCodec := range []codec.Codec{codec.JSON, codec.CBOR} {
		t.Run(payloadCodec.Name(), func(t *testing.T) {
			t.Parallel()
			listener, certificate := listen(t, payloadCodec)

			accepted := acceptOne(t, listener)

			client, err := Dial(context.Background(), listener.Addr().String(), ClientOptions{
				CACertificate: certificate,
				Timeout:       5 * time.Second,
				Codec:         payloadCodec,
			})
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer client.Close()

			server := testutil.RequireReceive(t, accepted, 5*time.Second, "accepted connection")
			defer server.Close()

			if err := client.Send(sample{Type: 0, Data: "alice"}); err != nil {
				t.Fatalf("client Send: %v", err)
			}
			var identify sample
			if err := server.Receive(&identify); err != nil {
				t.Fatalf("server Receive: %v", err)
			}
			if identify.Type != 0 || identify.Data != "alice" {
				t.Errorf("server received %+v", identify)
			}

			if err := server.Send(sample{Type: 2, Data: "Welcome", Sender: "Server"}); err != nil {
				t.Fatalf("server Send: %v", err)
			}
			var welcome sample
			if err := client.Receive(&welcome); err != nil {
				t.Fatalf("client Receive: %v", err)
			}
			if welcome.Sender != "Server" || welcome.Data != "Welcome" {
				t.Errorf("client received %+v", welcome)
			}
		})
	}
}

func TestWaitReadable_TLSTimeoutIsNotSticky(t *testing.T) {
	t.Parallel()
	listener, certificate := listen(t, codec.JSON)

	accepted := acceptOne(t, listener)

	client, err := Dial(context.Background(), listener.Addr().String(), ClientOptions{
		CACertificate: certificate,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	server := testutil.RequireReceive(t, accepted, 5*time.Second, "accepted connection")
	defer server.Close()

	ready, err := client.WaitReadable(20 * time.Millisecond)
	if err != nil || ready {
		t.Fatalf("WaitReadable on idle TLS connection = (%v, %v), want (false, nil)", ready, err)
	}

	if err := server.Send(sample{Type: 2, Data: "after timeout"}); err != nil {
		t.Fatalf("server Send: %v", err)
	}
	ready, err = client.WaitReadable(5 * time.Second)
	if err != nil || !ready {
		t.Fatalf("WaitReadable after timeout = (%v, %v), want (true, nil)", ready, err)
	}
	var received sample
	if err := client.Receive(&received); err != nil {
		t.Fatalf("Receive after a timed-out poll: %v", err)
	}
}

func TestClose_PeerSeesEndOfStream(t *testing.T) {
	t.Parallel()
	listener, certificate := listen(t, codec.JSON)

	accepted := acceptOne(t, listener)

	client, err := Dial(context.Background(), listener.Addr().String(), ClientOptions{
		CACertificate: certificate,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server := testutil.RequireReceive(t, accepted, 5*time.Second, "accepted connection")
	defer server.Close()

	if err := client.Close(); err != nil {
		t.Fatalf("client Close: %v", err)
	}

	var received sample
	if err := server.Receive(&received); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("server Receive after client close = %v, want ErrConnectionBroken", err)
	}
	// Closing the far side after the peer left is not an error.
	if err := server.Close(); err != nil {
		t.Errorf("server Close after peer left = %v, want nil", err)
	}
}

func TestDial_UntrustedServer(t *testing.T) {
	t.Parallel()
	listener, _ := listen(t, codec.JSON)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Handshake(context.Background())
			conn.Close()
		}
	}()

	// A different self-signed certificate is not a trust root for the
	// listener's certificate.
	otherCA, _ := testutil.TLSFiles(t)
	_, err := Dial(context.Background(), listener.Addr().String(), ClientOptions{
		CACertificate: otherCA,
		Timeout:       5 * time.Second,
	})
	if !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Dial to untrusted server = %v, want ErrConnectionBroken", err)
	}
}

func TestDial_Errors(t *testing.T) {
	t.Parallel()
	certificate, _ := testutil.TLSFiles(t)
	notPEM := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(notPEM, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}

	// Reserve a port and release it so nothing listens there.
	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closedAddress := reserved.Addr().String()
	reserved.Close()

	tests := []struct {
		name    string
		address string
		options ClientOptions
	}{
		{name: "no CA", address: closedAddress, options: ClientOptions{}},
		{name: "missing CA file", address: closedAddress, options: ClientOptions{CACertificate: filepath.Join(t.TempDir(), "absent.pem")}},
		{name: "CA without certificates", address: closedAddress, options: ClientOptions{CACertificate: notPEM}},
		{name: "bad address", address: "no-port", options: ClientOptions{CACertificate: certificate}},
		{name: "refused", address: closedAddress, options: ClientOptions{CACertificate: certificate, Timeout: 2 * time.Second}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			conn, err := Dial(context.Background(), test.address, test.options)
			if !errors.Is(err, ErrConnectionBroken) {
				t.Errorf("Dial = (%v, %v), want ErrConnectionBroken", conn, err)
			}
		})
	}
}

func TestListen_Errors(t *testing.T) {
	t.Parallel()
	certificate, key := testutil.TLSFiles(t)

	if _, err := Listen("127.0.0.1:0", ServerOptions{Certificate: certificate, Key: filepath.Join(t.TempDir(), "absent.pem")}); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Listen with missing key = %v, want ErrConnectionBroken", err)
	}

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()
	if _, err := Listen(occupied.Addr().String(), ServerOptions{Certificate: certificate, Key: key}); !errors.Is(err, ErrConnectionBroken) {
		t.Errorf("Listen on occupied port = %v, want ErrConnectionBroken", err)
	}
}

func TestListener_AcceptAfterClose(t *testing.T) {
	t.Parallel()
	listener, _ := listen(t, codec.JSON)
	listener.Close()
	if _, err := listener.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Accept after Close = %v, want net.ErrClosed", err)
	}
}

func TestParseTLSVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		want    uint16
		wantErr bool
	}{
		{name: "", want: tls.VersionTLS12},
		{name: "1.2", want: tls.VersionTLS12},
		{name: "1.3", want: tls.VersionTLS13},
		{name: "1.0", want: tls.VersionTLS10},
		{name: "SSLv3", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseTLSVersion(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseTLSVersion(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseTLSVersion(%q) = %#x, want %#x", test.name, got, test.want)
		}
	}
}
