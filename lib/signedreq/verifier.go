// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package signedreq

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arbor-foundation/arbor/lib/clock"
	"github.com/arbor-foundation/arbor/lib/identity"
	"github.com/arbor-foundation/arbor/lib/noncecache"
)

// DefaultMaxDrift is the default tolerance between the verifier's
// clock and a request's timestamp, in either direction.
const DefaultMaxDrift = 30 * time.Second

// Errors returned by Verify. Each verification stage has its own
// terminal error so callers can react differently — a client seeing
// ErrExpiredTimestamp can resync its clock and retry; one seeing
// ErrInvalidSignature must not.
var (
	ErrMalformedRequest = errors.New("signedreq: malformed request")
	ErrExpiredTimestamp = errors.New("signedreq: timestamp outside drift window")
	ErrUnknownAgent     = errors.New("signedreq: unknown agent")
	ErrInvalidSignature = errors.New("signedreq: invalid signature")
	ErrReplayedNonce    = errors.New("signedreq: replayed nonce")
)

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	// Registry resolves agent IDs to signing keys. Required.
	Registry *identity.Registry

	// Nonces is the replay cache. Required. Its TTL should cover at
	// least 2×MaxDrift so a request cannot outlive its nonce record
	// while its timestamp is still fresh.
	Nonces *noncecache.Cache

	// MaxDrift bounds |now − request.Timestamp|. Defaults to
	// DefaultMaxDrift.
	MaxDrift time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Verifier authenticates signed requests in four stages ordered by
// cost: timestamp arithmetic, then a registry lookup, then Ed25519
// verification, then the nonce cache's check-and-record. Cheap,
// uncontended checks run first so garbage is rejected before any
// cryptography, and the nonce write — the only state mutation —
// happens only for requests that proved authentic. Recording nonces
// last also keeps forged traffic from polluting the replay cache.
type Verifier struct {
	registry *identity.Registry
	nonces   *noncecache.Cache
	maxDrift time.Duration
	clk      clock.Clock
	logger   *slog.Logger
}

// NewVerifier creates a Verifier. Panics if Registry or Nonces is nil;
// a verifier without them is a construction error, not a runtime
// condition.
func NewVerifier(opts VerifierOptions) *Verifier {
	if opts.Registry == nil {
		panic("signedreq: VerifierOptions.Registry is required")
	}
	if opts.Nonces == nil {
		panic("signedreq: VerifierOptions.Nonces is required")
	}
	if opts.MaxDrift <= 0 {
		opts.MaxDrift = DefaultMaxDrift
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Verifier{
		registry: opts.Registry,
		nonces:   opts.Nonces,
		maxDrift: opts.MaxDrift,
		clk:      opts.Clock,
		logger:   opts.Logger,
	}
}

// Verify authenticates a request and returns the verified agent ID.
// Each failure is terminal and carries the stage's sentinel error.
// A timestamp exactly MaxDrift old (or ahead) still passes; one
// second beyond fails.
func (v *Verifier) Verify(request *Request) (string, error) {
	return v.VerifyAt(request, v.clk.Now())
}

// VerifyAt is Verify with an explicit evaluation time. Replay
// detection still consults the live nonce cache; only the drift check
// uses the supplied time.
func (v *Verifier) VerifyAt(request *Request, now time.Time) (string, error) {
	if err := request.validate(); err != nil {
		return "", err
	}

	// Stage 1: timestamp freshness. Pure arithmetic, no lookups.
	drift := now.Sub(request.Timestamp)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.maxDrift {
		return "", fmt.Errorf("%w: |drift| = %v, max %v", ErrExpiredTimestamp, drift, v.maxDrift)
	}

	// Stage 2: identity lookup.
	publicKey, err := v.registry.Lookup(request.AgentID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUnknownAgent, request.AgentID)
		}
		return "", fmt.Errorf("signedreq: looking up %s: %w", request.AgentID, err)
	}

	// Stage 3: signature verification. The expensive CPU-bound step.
	if !ed25519.Verify(publicKey, request.SigningBytes(), request.Signature) {
		v.logger.Warn("signature verification failed", "agent_id", request.AgentID)
		return "", fmt.Errorf("%w: agent %s", ErrInvalidSignature, request.AgentID)
	}

	// Stage 4: replay prevention. Mutates the nonce cache, so it
	// runs only for authentic requests.
	if err := v.nonces.CheckAndRecord(request.Nonce, 0); err != nil {
		if errors.Is(err, noncecache.ErrReplayedNonce) {
			v.logger.Warn("replayed nonce rejected", "agent_id", request.AgentID)
			return "", fmt.Errorf("%w: agent %s", ErrReplayedNonce, request.AgentID)
		}
		return "", fmt.Errorf("signedreq: recording nonce: %w", err)
	}

	return request.AgentID, nil
}
