// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts small payloads to an identity's X25519
// encryption key using NaCl anonymous sealed boxes.
//
// A sealed box hides the sender: an ephemeral keypair is generated per
// message, so only the recipient (holding the private half of the
// registered encryption key) can open it, and nothing in the
// ciphertext identifies who sealed it. This fits credential handoff to
// an agent whose identity record carries an encryption key — the
// sender needs only the 32 public bytes from the identity registry.
//
// Sealed boxes provide confidentiality, not authenticity. A payload
// whose origin matters must additionally travel inside a signed
// request (lib/signedreq).
package sealed

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/arbor-foundation/arbor/lib/identity"
)

// Overhead is the ciphertext expansion of a sealed box: the ephemeral
// public key plus the Poly1305 authenticator.
const Overhead = box.AnonymousOverhead

// ErrDecryptionFailed is returned when a ciphertext cannot be opened
// with the given keypair. The cause is deliberately not distinguished
// (wrong key, truncated box, tampered bytes all look identical).
var ErrDecryptionFailed = errors.New("sealed: decryption failed")

// Seal encrypts plaintext to the recipient's X25519 public key.
func Seal(recipient *[identity.EncryptionKeySize]byte, plaintext []byte) ([]byte, error) {
	ciphertext, err := box.SealAnonymous(nil, plaintext, recipient, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: sealing payload: %w", err)
	}
	return ciphertext, nil
}

// Open decrypts a sealed box with the recipient's keypair.
func Open(publicKey, privateKey *[identity.EncryptionKeySize]byte, ciphertext []byte) ([]byte, error) {
	plaintext, ok := box.OpenAnonymous(nil, ciphertext, publicKey, privateKey)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
