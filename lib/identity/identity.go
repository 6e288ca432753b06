// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// AgentIDPrefix is the fixed prefix of every Arbor agent ID.
	AgentIDPrefix = "arb-"

	// agentIDHashBytes is the number of BLAKE3 output bytes encoded
	// into the agent ID. 16 bytes (32 hex characters) is collision
	// resistant for any realistic identity population while keeping
	// IDs short enough for log lines and socket paths.
	agentIDHashBytes = 16

	// AgentIDLength is the total length of a well-formed agent ID:
	// the prefix plus the hex-encoded hash.
	AgentIDLength = len(AgentIDPrefix) + 2*agentIDHashBytes

	// EncryptionKeySize is the size of an X25519 encryption public key.
	EncryptionKeySize = 32
)

// agentIDDomainKey is the 32-byte BLAKE3 key for agent-ID derivation.
// Domain separation ensures public-key bytes hashed in other contexts
// can never collide with agent IDs. The value is the ASCII encoding of
// the domain name, zero-padded to 32 bytes; readable ASCII makes the
// key inspectable in hex dumps without sacrificing any cryptographic
// property (BLAKE3 keyed mode treats it as an opaque 32-byte value).
var agentIDDomainKey = [32]byte{
	'a', 'r', 'b', 'o', 'r', '.', 'i', 'd', 'e', 'n', 't', 'i', 't', 'y', '.',
	'a', 'g', 'e', 'n', 't', '-', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Identity is the public key material registered for one agent. It
// never carries private key material — signing keys stay with the
// agent, and the registry stores only what is needed to verify.
//
// Identities are immutable once registered. Key rotation is modeled as
// deregistration followed by registration of a new identity (whose
// AgentID differs, since it derives from the new public key) with an
// incremented KeyVersion.
type Identity struct {
	// AgentID uniquely identifies the agent. Must equal
	// DeriveAgentID(PublicKey); Registry.Register enforces this.
	AgentID string

	// PublicKey is the agent's Ed25519 signing public key.
	PublicKey ed25519.PublicKey

	// EncryptionPublicKey is the agent's optional X25519 key for
	// sealed payloads (see lib/sealed). Nil when the agent has no
	// encryption key.
	EncryptionPublicKey *[EncryptionKeySize]byte

	// Name is an optional human-readable label. Names are not
	// unique; many identities may share one.
	Name string

	// KeyVersion distinguishes successive keys for the same logical
	// agent across rotations.
	KeyVersion int

	// CreatedAt records when the identity was registered.
	CreatedAt time.Time

	// Metadata carries arbitrary caller-supplied annotations.
	Metadata map[string]string
}

// DeriveAgentID computes the canonical agent ID for an Ed25519 public
// key: the prefix "arb-" followed by the first 16 bytes of the keyed
// BLAKE3 hash of the key, hex encoded.
//
//	DeriveAgentID(key) → "arb-3f9a…" (36 characters total)
func DeriveAgentID(publicKey ed25519.PublicKey) string {
	hasher, err := blake3.NewKeyed(agentIDDomainKey[:])
	if err != nil {
		// NewKeyed only fails on wrong key length, which the
		// fixed-size domain key rules out.
		panic("identity: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(publicKey)
	digest := hasher.Sum(nil)
	return AgentIDPrefix + hex.EncodeToString(digest[:agentIDHashBytes])
}

// ValidateAgentID checks that a string has the shape of an agent ID:
// the "arb-" prefix followed by exactly 32 lowercase hex characters.
// Shape validation rejects obviously malformed IDs before any lookup;
// it does not prove the ID corresponds to a registered key.
func ValidateAgentID(agentID string) error {
	if len(agentID) != AgentIDLength {
		return fmt.Errorf("agent ID is %d characters, want %d", len(agentID), AgentIDLength)
	}
	if agentID[:len(AgentIDPrefix)] != AgentIDPrefix {
		return fmt.Errorf("agent ID %q does not start with %q", agentID, AgentIDPrefix)
	}
	for i := len(AgentIDPrefix); i < len(agentID); i++ {
		c := agentID[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("agent ID contains invalid character %q at position %d", c, i)
		}
	}
	return nil
}

// clone returns a deep copy of the identity so registry internals are
// never aliased by caller-held values.
func (id *Identity) clone() *Identity {
	copied := *id
	copied.PublicKey = append(ed25519.PublicKey(nil), id.PublicKey...)
	if id.EncryptionPublicKey != nil {
		key := *id.EncryptionPublicKey
		copied.EncryptionPublicKey = &key
	}
	if id.Metadata != nil {
		copied.Metadata = make(map[string]string, len(id.Metadata))
		for k, v := range id.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}
