// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Keypair holds freshly generated key material for a new agent. The
// private halves exist only in the caller's hands — nothing in this
// package retains them.
type Keypair struct {
	AgentID    string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey

	// EncryptionPublicKey and EncryptionPrivateKey are the optional
	// X25519 pair for sealed payloads. Nil unless requested.
	EncryptionPublicKey  *[EncryptionKeySize]byte
	EncryptionPrivateKey *[EncryptionKeySize]byte
}

// GenerateKeypair creates a new Ed25519 signing keypair and derives
// its agent ID. When withEncryption is set, an X25519 encryption pair
// is generated alongside it.
func GenerateKeypair(withEncryption bool) (*Keypair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generating Ed25519 keypair: %w", err)
	}

	pair := &Keypair{
		AgentID:    DeriveAgentID(public),
		PublicKey:  public,
		PrivateKey: private,
	}

	if withEncryption {
		encPublic, encPrivate, err := box.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("identity: generating X25519 keypair: %w", err)
		}
		pair.EncryptionPublicKey = encPublic
		pair.EncryptionPrivateKey = encPrivate
	}

	return pair, nil
}

// Identity builds the registrable Identity record for this keypair.
// Only public material crosses over.
func (k *Keypair) Identity(name string, keyVersion int) Identity {
	id := Identity{
		AgentID:    k.AgentID,
		PublicKey:  k.PublicKey,
		Name:       name,
		KeyVersion: keyVersion,
	}
	if k.EncryptionPublicKey != nil {
		key := *k.EncryptionPublicKey
		id.EncryptionPublicKey = &key
	}
	return id
}
