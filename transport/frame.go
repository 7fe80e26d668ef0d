// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// headerLength is the size of the frame header: a 4-byte big-endian
// payload length.
const headerLength = 4

// MaxPayload is the largest payload a frame may carry. Larger lengths
// are treated as a corrupt stream.
const MaxPayload = 16 * 1024 * 1024

// WriteFrame writes payload to w as a single frame. The header and
// payload go out in one Write call so that a frame is never split
// between concurrent writers sharing a lock around WriteFrame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("payload length %d exceeds maximum %d", len(payload), MaxPayload)
	}
	frame := make([]byte, headerLength+len(payload))
	binary.BigEndian.PutUint32(frame[:headerLength], uint32(len(payload)))
	copy(frame[headerLength:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and returns its payload. A stream
// that ends before the header is complete returns io.EOF; one that ends
// inside a frame returns io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	payloadLength := binary.BigEndian.Uint32(header[:])
	if payloadLength > MaxPayload {
		return nil, fmt.Errorf("payload length %d exceeds maximum %d", payloadLength, MaxPayload)
	}
	payload := make([]byte, payloadLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
