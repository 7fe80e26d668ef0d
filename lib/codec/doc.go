// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the payload serializations used inside
// p2paste frames.
//
// A frame on the wire is a 4-byte big-endian length followed by one
// serialized envelope. The transport does not care how the envelope is
// serialized; it asks a [Codec] to do it. Two codecs exist:
//
//   - [JSON]: UTF-8 JSON, the default and the format every p2paste
//     client and server understands. Third-party peers interoperate
//     only over JSON.
//   - [CBOR]: RFC 8949 Core Deterministic Encoding via fxamacker/cbor.
//     Smaller frames for large pastes. Both ends must be configured
//     with the same codec; there is no negotiation.
//
// Types that travel in frames carry `json` struct tags only.
// fxamacker/cbor reads `json` tags when `cbor` tags are absent, so a
// single tag controls field naming and omitempty for both codecs.
//
// When the decode target is any (the envelope's data field), CBOR maps
// decode as map[string]any rather than map[any]any so the two codecs
// produce the same Go shapes for the envelope layer to validate.
package codec
