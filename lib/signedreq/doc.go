// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package signedreq implements Arbor's signed-request wire contract
// and its verifier.
//
// A signed request binds an opaque payload to a registered agent
// identity with an Ed25519 signature over a canonical length-prefixed
// concatenation of payload, agent ID, timestamp, and nonce. The
// framing is bit-exact across implementations: 4-byte big-endian
// length before each field, timestamp rendered as RFC 3339 UTC with
// second precision.
//
// Verification runs four stages in strict cost order — timestamp
// drift, identity lookup, signature check, nonce replay check — and
// fails with a distinct sentinel error per stage. The nonce is
// recorded only after the signature proves authentic, so an attacker
// cannot burn a victim's nonces with forged requests.
package signedreq
