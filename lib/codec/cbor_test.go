// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	// Maps with the same contents must encode identically regardless
	// of insertion order.
	first := map[string]int{"alpha": 1, "beta": 2, "gamma": 3}
	second := map[string]int{"gamma": 3, "alpha": 1, "beta": 2}

	firstBytes, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal(first): %v", err)
	}
	secondBytes, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal(second): %v", err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Errorf("deterministic encoding violated:\n  first:  %x\n  second: %x", firstBytes, secondBytes)
	}
}

func TestRoundTripStruct(t *testing.T) {
	type record struct {
		Principal string `cbor:"1,keyasint"`
		Resource  string `cbor:"2,keyasint"`
		Allowed   bool   `cbor:"3,keyasint"`
	}

	in := record{Principal: "arb-0011", Resource: "arbor://shell/execute/ls", Allowed: true}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out record
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := out.(map[string]any); !ok {
		t.Errorf("decoded any-typed map is %T, want map[string]any", out)
	}
}
