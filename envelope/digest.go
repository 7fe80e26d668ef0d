// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// pasteDomainKey is the BLAKE3 key for paste fingerprints: the ASCII
// domain name zero-padded to 32 bytes.
var pasteDomainKey = [32]byte{
	'p', '2', 'p', 'a', 's', 't', 'e', '.', 'p', 'a', 's', 't', 'e',
}

// digestLength is the number of hex characters Digest returns.
const digestLength = 12

// Digest returns a short BLAKE3 fingerprint of paste content. Logs and
// the terminal UI use it to refer to a paste without printing it.
func Digest(content string) string {
	hasher, err := blake3.NewKeyed(pasteDomainKey[:])
	if err != nil {
		panic("envelope: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(content))
	return hex.EncodeToString(hasher.Sum(nil))[:digestLength]
}
