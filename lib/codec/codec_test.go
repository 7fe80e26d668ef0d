// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"reflect"
	"testing"
)

// frameSample mirrors the envelope shape: json tags only, an optional
// field, and an any-typed payload.
type frameSample struct {
	Type   int    `json:"type"`
	Data   any    `json:"data"`
	Sender string `json:"sender,omitempty"`
}

func TestRoundtrip(t *testing.T) {
	t.Parallel()
	for _, codec := range []Codec{JSON, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()
			original := frameSample{Type: 2, Data: "hello", Sender: "alice"}

			data, err := codec.Marshal(original)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("Marshal produced empty output")
			}

			var decoded frameSample
			if err := codec.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(decoded, original) {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
			}
		})
	}
}

func TestOmitemptySender(t *testing.T) {
	t.Parallel()
	for _, codec := range []Codec{JSON, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()
			withSender, err := codec.Marshal(frameSample{Type: 2, Data: "x", Sender: "bob"})
			if err != nil {
				t.Fatal(err)
			}
			withoutSender, err := codec.Marshal(frameSample{Type: 2, Data: "x"})
			if err != nil {
				t.Fatal(err)
			}
			if len(withoutSender) >= len(withSender) {
				t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
					len(withoutSender), len(withSender))
			}
		})
	}
}

func TestAnyMapDecodesWithStringKeys(t *testing.T) {
	t.Parallel()
	for _, codec := range []Codec{JSON, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			t.Parallel()
			data, err := codec.Marshal(map[string]any{"type": 1, "data": []string{"a", "b"}})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			var decoded any
			if err := codec.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			asMap, ok := decoded.(map[string]any)
			if !ok {
				t.Fatalf("decoded %T, want map[string]any", decoded)
			}
			list, ok := asMap["data"].([]any)
			if !ok || len(list) != 2 || list[0] != "a" || list[1] != "b" {
				t.Errorf("data = %#v, want [a b]", asMap["data"])
			}
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	t.Parallel()
	value := map[string]any{"sender": "alice", "type": 3, "data": "paste body"}

	first, err := CBOR.Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := CBOR.Marshal(value)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	t.Parallel()
	var sample frameSample
	if err := CBOR.Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &sample); err == nil {
		t.Error("CBOR.Unmarshal should reject invalid CBOR")
	}
	if err := JSON.Unmarshal([]byte(`{"type":`), &sample); err == nil {
		t.Error("JSON.Unmarshal should reject truncated JSON")
	}
}

func TestByName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "json"},
		{name: "json", want: "json"},
		{name: "JSON", want: "json"},
		{name: "cbor", want: "cbor"},
		{name: "msgpack", wantErr: true},
	}
	for _, test := range tests {
		codec, err := ByName(test.name)
		if test.wantErr {
			if err == nil {
				t.Errorf("ByName(%q) = %v, want error", test.name, codec.Name())
			}
			continue
		}
		if err != nil {
			t.Errorf("ByName(%q): %v", test.name, err)
			continue
		}
		if codec.Name() != test.want {
			t.Errorf("ByName(%q).Name() = %q, want %q", test.name, codec.Name(), test.want)
		}
	}
}
