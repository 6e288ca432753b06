// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity implements Arbor's agent identity model and the
// in-process identity registry.
//
// An agent ID is not an arbitrary name: it is derived from the agent's
// Ed25519 public key with a keyed BLAKE3 hash ("arb-" plus 32 hex
// characters). The registry recomputes the derivation on registration
// and rejects any identity whose claimed ID disagrees, so an agent ID
// always proves which public key it belongs to. Private key material
// is never accepted or stored.
//
// Identities are immutable once registered — there is no update
// operation. Key rotation produces a new identity (the new public key
// derives a new agent ID) with an incremented KeyVersion, and the old
// one is deregistered.
//
// The registry keeps a secondary, non-unique index by Name. Names are
// labels for humans; agent IDs are the authority.
package identity
