// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/p2paste/p2paste/lib/codec"
)

// ClientOptions configures [Dial].
type ClientOptions struct {
	// CACertificate is a PEM file holding the certificates trusted to
	// sign the server certificate.
	CACertificate string

	// ServerName is the name verified against the server certificate.
	// Empty uses the host part of the dialed address.
	ServerName string

	// MinVersion is a crypto/tls version constant. Zero means TLS 1.2.
	MinVersion uint16

	// Timeout bounds the dial, the TLS handshake, and each frame read
	// or write on the resulting connection.
	Timeout time.Duration

	// Codec serializes payloads. Nil means JSON.
	Codec codec.Codec
}

// ServerOptions configures [Listen].
type ServerOptions struct {
	// Certificate and Key are PEM files. They may name the same file.
	Certificate string
	Key         string

	// MinVersion is a crypto/tls version constant. Zero means TLS 1.2.
	MinVersion uint16

	// Timeout bounds the TLS handshake and each frame read or write on
	// accepted connections.
	Timeout time.Duration

	// Codec serializes payloads. Nil means JSON.
	Codec codec.Codec
}

// ParseTLSVersion converts "1.0" through "1.3" into a crypto/tls
// version constant. The empty string means TLS 1.2.
func ParseTLSVersion(name string) (uint16, error) {
	switch name {
	case "1.0":
		return tls.VersionTLS10, nil
	case "1.1":
		return tls.VersionTLS11, nil
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", name)
	}
}

func minVersion(version uint16) uint16 {
	if version == 0 {
		return tls.VersionTLS12
	}
	return version
}

// Dial connects to address, completes the TLS handshake against the
// configured trust root, and returns the framed connection.
func Dial(ctx context.Context, address string, options ClientOptions) (*Conn, error) {
	roots, err := loadCertificatePool(options.CACertificate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionBroken, err)
	}

	serverName := options.ServerName
	if serverName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return nil, broken("parsing address "+address, err)
		}
		serverName = host
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: options.Timeout},
		Config: &tls.Config{
			RootCAs:    roots,
			ServerName: serverName,
			MinVersion: minVersion(options.MinVersion),
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, broken("connecting to "+address, err)
	}
	return NewConn(conn, options.Codec, options.Timeout), nil
}

func loadCertificatePool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, errors.New("no CA certificate configured")
	}
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("no PEM certificates in %s", path)
	}
	return pool, nil
}

// Listener accepts TLS connections and wraps them as [Conn].
type Listener struct {
	listener net.Listener
	options  ServerOptions
}

// Listen binds address and returns a TLS listener serving the
// configured certificate. Use port 0 for a random available port.
func Listen(address string, options ServerOptions) (*Listener, error) {
	certificate, err := tls.LoadX509KeyPair(options.Certificate, options.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: loading certificate: %w", ErrConnectionBroken, err)
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, broken("listening on "+address, err)
	}

	tlsListener := tls.NewListener(listener, &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   minVersion(options.MinVersion),
	})
	return &Listener{listener: tlsListener, options: options}, nil
}

// Accept waits for the next connection. The TLS handshake has not run
// yet; call [Conn.Handshake]. After Close, Accept returns an error
// satisfying errors.Is(err, net.ErrClosed).
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	return NewConn(conn, l.options.Codec, l.options.Timeout), nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close stops accepting connections.
func (l *Listener) Close() error {
	return l.listener.Close()
}
