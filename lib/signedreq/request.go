// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package signedreq

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/arbor-foundation/arbor/lib/identity"
	"github.com/arbor-foundation/arbor/lib/noncecache"
)

const (
	// NonceSize is the required nonce length. Matches the nonce
	// cache's fixed size.
	NonceSize = noncecache.NonceSize

	// SignatureSize is the fixed size of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize // 64 bytes

	// timestampFormat is the wire form of the request timestamp:
	// ISO-8601 / RFC 3339 in UTC with second precision. The string
	// participates in the signed bytes, so signer and verifier must
	// render it identically.
	timestampFormat = "2006-01-02T15:04:05Z"
)

// Request is a caller-signed request: an opaque payload bound to the
// signer's identity, a timestamp, and a single-use nonce. It is
// constructed by Sign, consumed once by Verifier.Verify, and never
// persisted beyond the nonce record.
type Request struct {
	// Payload is the opaque request body. Must be non-empty.
	Payload []byte

	// AgentID identifies the claimed signer.
	AgentID string

	// Timestamp is the signing instant, UTC.
	Timestamp time.Time

	// Nonce is 16 random bytes, unique per request.
	Nonce []byte

	// Signature is the 64-byte Ed25519 signature over SigningBytes.
	Signature []byte
}

// SigningBytes builds the canonical byte string that is signed and
// verified: each of payload, agent ID, the wire-format timestamp, and
// nonce preceded by a 4-byte big-endian length.
//
//	[len(payload)][payload][len(agent_id)][agent_id][len(ts)][ts][len(nonce)][nonce]
//
// Length prefixes make the concatenation unambiguous — no choice of
// field contents can shift bytes between fields. The framing is part
// of the wire contract; a verifier that deviates by one byte rejects
// every cross-implementation signature.
func (r *Request) SigningBytes() []byte {
	timestamp := r.Timestamp.UTC().Format(timestampFormat)

	fields := [][]byte{r.Payload, []byte(r.AgentID), []byte(timestamp), r.Nonce}
	size := 0
	for _, field := range fields {
		size += 4 + len(field)
	}

	buf := make([]byte, 0, size)
	for _, field := range fields {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(field)))
		buf = append(buf, field...)
	}
	return buf
}

// validate checks the structural invariants that hold for every
// well-formed request, signed or not.
func (r *Request) validate() error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformedRequest)
	}
	if err := identity.ValidateAgentID(r.AgentID); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if len(r.Nonce) != NonceSize {
		return fmt.Errorf("%w: nonce has %d bytes, want %d", ErrMalformedRequest, len(r.Nonce), NonceSize)
	}
	if len(r.Signature) != SignatureSize {
		return fmt.Errorf("%w: signature has %d bytes, want %d", ErrMalformedRequest, len(r.Signature), SignatureSize)
	}
	return nil
}

// Sign constructs a signed request for a payload: stamps the current
// time, draws a fresh random nonce, and signs the canonical byte
// string with the agent's private key. The agent ID is derived from
// the private key's public half, so a caller cannot accidentally sign
// as someone else.
func Sign(privateKey ed25519.PrivateKey, payload []byte, now time.Time) (*Request, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedRequest)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("signedreq: generating nonce: %w", err)
	}

	request := &Request{
		Payload:   payload,
		AgentID:   identity.DeriveAgentID(privateKey.Public().(ed25519.PublicKey)),
		Timestamp: now.UTC().Truncate(time.Second),
		Nonce:     nonce,
	}
	request.Signature = ed25519.Sign(privateKey, request.SigningBytes())
	return request, nil
}
