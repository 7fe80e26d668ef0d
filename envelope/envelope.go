// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

// Type identifies the kind of an envelope. The numeric values are the
// wire encoding and are fixed.
type Type int

const (
	// TypeIdentify carries the nickname a client announces on connect.
	TypeIdentify Type = 0

	// TypeClientList carries the sorted nicknames of identified clients.
	TypeClientList Type = 1

	// TypeMessage carries chat text.
	TypeMessage Type = 2

	// TypePaste carries paste content from the permission holder.
	TypePaste Type = 3

	// TypePasteRequest asks the server for paste permission. No data.
	TypePasteRequest Type = 4

	// TypePasteGranted tells a client it holds paste permission. No data.
	TypePasteGranted Type = 5

	// TypePasteNotification tells other clients who holds paste
	// permission. Data is the holder's nickname.
	TypePasteNotification Type = 6
)

var typeNames = [...]string{
	TypeIdentify:          "IDENTIFY",
	TypeClientList:        "CLIENT_LIST",
	TypeMessage:           "MESSAGE",
	TypePaste:             "PASTE",
	TypePasteRequest:      "PASTE_REQUEST",
	TypePasteGranted:      "PASTE_GRANTED",
	TypePasteNotification: "PASTE_NOTIFICATION",
}

// Valid reports whether t is a known envelope type.
func (t Type) Valid() bool {
	return t >= TypeIdentify && t <= TypePasteNotification
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

var (
	// ErrVerificationFailed means an envelope is malformed: missing or
	// unknown type, missing data, a required sender that is absent, or
	// data of the wrong shape.
	ErrVerificationFailed = errors.New("envelope verification failed")

	// ErrIdentificationFailed means a connection's first envelope is
	// not a valid IDENTIFY.
	ErrIdentificationFailed = errors.New("client identification failed")
)

// Envelope is one p2paste message. Its JSON tags define the wire field
// names for every codec.
type Envelope struct {
	Type   Type   `json:"type"`
	Data   any    `json:"data"`
	Sender string `json:"sender,omitempty"`
}

// Raw is an envelope as the codec decoded it, before validation.
type Raw map[string]any

// Identify builds the IDENTIFY envelope announcing nickname.
func Identify(nickname string) Envelope {
	return Envelope{Type: TypeIdentify, Data: nickname}
}

// Message builds a chat MESSAGE envelope.
func Message(text string) Envelope {
	return Envelope{Type: TypeMessage, Data: text}
}

// Paste builds a PASTE envelope carrying content.
func Paste(content string) Envelope {
	return Envelope{Type: TypePaste, Data: content}
}

// PasteRequest builds a PASTE_REQUEST envelope.
func PasteRequest() Envelope {
	return Envelope{Type: TypePasteRequest}
}

// PasteGranted builds a PASTE_GRANTED envelope.
func PasteGranted() Envelope {
	return Envelope{Type: TypePasteGranted}
}

// PasteNotification builds a PASTE_NOTIFICATION envelope naming the
// current holder.
func PasteNotification(nickname string) Envelope {
	return Envelope{Type: TypePasteNotification, Data: nickname}
}

// ClientList builds a CLIENT_LIST envelope. A nil names slice encodes
// as an empty list.
func ClientList(names []string) Envelope {
	if names == nil {
		names = []string{}
	}
	return Envelope{Type: TypeClientList, Data: names}
}

// AddSender returns env with its sender set to nickname, replacing any
// sender already present.
func AddSender(env Envelope, nickname string) Envelope {
	env.Sender = nickname
	return env
}

// Decode validates raw and returns it as an Envelope. When
// requireSender is true the sender field must be present and a string.
// Every failure wraps ErrVerificationFailed.
func Decode(raw Raw, requireSender bool) (Envelope, error) {
	rawType, ok := raw["type"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrVerificationFailed)
	}
	envelopeType, ok := parseType(rawType)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: unrecognized type %v", ErrVerificationFailed, rawType)
	}

	rawData, ok := raw["data"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %s without data", ErrVerificationFailed, envelopeType)
	}
	data, err := normalizeData(envelopeType, rawData)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %w", ErrVerificationFailed, envelopeType, err)
	}

	env := Envelope{Type: envelopeType, Data: data}
	switch sender := raw["sender"].(type) {
	case string:
		env.Sender = sender
	case nil:
		if requireSender {
			return Envelope{}, fmt.Errorf("%w: %s without sender", ErrVerificationFailed, envelopeType)
		}
	default:
		if requireSender {
			return Envelope{}, fmt.Errorf("%w: %s sender is %T, want string", ErrVerificationFailed, envelopeType, sender)
		}
	}
	return env, nil
}

// parseType accepts the integer representations the codecs produce:
// float64 from JSON, int64 and uint64 from CBOR, and Go integers from
// in-process values.
func parseType(v any) (Type, bool) {
	var number int64
	switch value := v.(type) {
	case float64:
		if value != math.Trunc(value) || value < 0 || value > math.MaxInt32 {
			return 0, false
		}
		number = int64(value)
	case int64:
		number = value
	case uint64:
		if value > math.MaxInt32 {
			return 0, false
		}
		number = int64(value)
	case int:
		number = int64(value)
	case Type:
		number = int64(value)
	default:
		return 0, false
	}
	t := Type(number)
	if !t.Valid() {
		return 0, false
	}
	return t, true
}

func normalizeData(t Type, data any) (any, error) {
	switch t {
	case TypeIdentify, TypeMessage, TypePaste, TypePasteNotification:
		text, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("data is %T, want string", data)
		}
		return text, nil
	case TypeClientList:
		return normalizeNames(data)
	default:
		// PASTE_REQUEST and PASTE_GRANTED carry nothing.
		return nil, nil
	}
}

func normalizeNames(data any) ([]string, error) {
	switch list := data.(type) {
	case []string:
		return list, nil
	case []any:
		names := make([]string, 0, len(list))
		for index, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("client list entry %d is %T, want string", index, item)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("data is %T, want list of strings", data)
	}
}

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,}$`)

// ValidNickname reports whether nickname is at least three characters
// drawn from letters, digits, dot, underscore and hyphen.
func ValidNickname(nickname string) bool {
	return nicknamePattern.MatchString(nickname)
}

// IdentifyClient returns the nickname carried by raw when it is a valid
// IDENTIFY envelope. Every failure wraps ErrIdentificationFailed.
func IdentifyClient(raw Raw) (string, error) {
	env, err := Decode(raw, false)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIdentificationFailed, err)
	}
	if env.Type != TypeIdentify {
		return "", fmt.Errorf("%w: first envelope is %s", ErrIdentificationFailed, env.Type)
	}
	nickname := env.Data.(string)
	if !ValidNickname(nickname) {
		return "", fmt.Errorf("%w: invalid nickname %q", ErrIdentificationFailed, nickname)
	}
	return nickname, nil
}
