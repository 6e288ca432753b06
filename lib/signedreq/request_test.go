// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package signedreq

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"testing"
	"time"

	"github.com/arbor-foundation/arbor/lib/identity"
)

func signingKey(t *testing.T, seed byte) ed25519.PrivateKey {
	t.Helper()
	seedBytes := make([]byte, ed25519.SeedSize)
	for i := range seedBytes {
		seedBytes[i] = seed
	}
	return ed25519.NewKeyFromSeed(seedBytes)
}

func TestSigningBytesFraming(t *testing.T) {
	request := &Request{
		Payload:   []byte("hi"),
		AgentID:   "arb-00112233445566778899aabbccddeeff",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Nonce:     bytes.Repeat([]byte{0xab}, NonceSize),
	}

	var want []byte
	for _, field := range [][]byte{
		[]byte("hi"),
		[]byte("arb-00112233445566778899aabbccddeeff"),
		[]byte("2026-01-02T03:04:05Z"),
		bytes.Repeat([]byte{0xab}, NonceSize),
	} {
		want = binary.BigEndian.AppendUint32(want, uint32(len(field)))
		want = append(want, field...)
	}

	if got := request.SigningBytes(); !bytes.Equal(got, want) {
		t.Errorf("SigningBytes framing mismatch:\n  got:  %x\n  want: %x", got, want)
	}
}

func TestSigningBytesTimestampNormalizedToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	local := &Request{
		Payload:   []byte("x"),
		AgentID:   "arb-00112233445566778899aabbccddeeff",
		Timestamp: time.Date(2026, 1, 2, 5, 4, 5, 0, zone),
		Nonce:     make([]byte, NonceSize),
	}
	utc := &Request{
		Payload:   local.Payload,
		AgentID:   local.AgentID,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Nonce:     local.Nonce,
	}

	if !bytes.Equal(local.SigningBytes(), utc.SigningBytes()) {
		t.Error("same instant in different zones produced different signing bytes")
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	privateKey := signingKey(t, 1)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	request, err := Sign(privateKey, []byte("payload"), now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	publicKey := privateKey.Public().(ed25519.PublicKey)
	if request.AgentID != identity.DeriveAgentID(publicKey) {
		t.Errorf("AgentID = %q, want derivation from the signing key", request.AgentID)
	}
	if !request.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", request.Timestamp, now)
	}
	if len(request.Nonce) != NonceSize {
		t.Errorf("nonce has %d bytes, want %d", len(request.Nonce), NonceSize)
	}
	if !ed25519.Verify(publicKey, request.SigningBytes(), request.Signature) {
		t.Error("signature does not verify over the signing bytes")
	}
}

func TestSignDrawsFreshNonces(t *testing.T) {
	privateKey := signingKey(t, 2)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	first, err := Sign(privateKey, []byte("payload"), now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := Sign(privateKey, []byte("payload"), now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Error("two Sign calls produced the same nonce")
	}
}

func TestSignRejectsEmptyPayload(t *testing.T) {
	if _, err := Sign(signingKey(t, 3), nil, time.Now()); err == nil {
		t.Error("Sign accepted an empty payload")
	}
}
