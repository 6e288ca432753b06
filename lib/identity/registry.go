// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arbor-foundation/arbor/lib/clock"
)

// Errors returned by Registry operations.
var (
	ErrAgentIDMismatch   = errors.New("identity: agent ID does not match public key derivation")
	ErrAlreadyRegistered = errors.New("identity: agent ID already registered")
	ErrNotFound          = errors.New("identity: agent ID not registered")
	ErrNoEncryptionKey   = errors.New("identity: agent has no encryption key")
)

// Registry is the process-lifetime map from agent ID to public key
// material. All reads and writes are serialized through its lock;
// callers never see partially applied registrations.
//
// The registry also maintains a secondary, non-unique index by Name so
// operators can resolve "which agent IDs answer to this label" without
// scanning.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]*Identity
	byName     map[string][]string

	registered   uint64
	deregistered uint64

	clk    clock.Clock
	logger *slog.Logger
}

// RegistryOptions configures a Registry. The zero value is usable:
// a nil Clock defaults to clock.Real() and a nil Logger to
// slog.Default().
type RegistryOptions struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// NewRegistry creates an empty identity registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		identities: make(map[string]*Identity),
		byName:     make(map[string][]string),
		clk:        opts.Clock,
		logger:     opts.Logger,
	}
}

// Register stores a new identity. The supplied AgentID must equal the
// derivation from the public key; the mismatch check runs before the
// duplicate check so a caller presenting a forged ID for an
// already-registered key gets ErrAgentIDMismatch, not
// ErrAlreadyRegistered.
//
// The identity is copied on the way in. CreatedAt is stamped by the
// registry; a caller-supplied value is ignored.
func (r *Registry) Register(id Identity) error {
	if len(id.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("identity: public key has %d bytes, want %d", len(id.PublicKey), ed25519.PublicKeySize)
	}

	expected := DeriveAgentID(id.PublicKey)
	if id.AgentID != expected {
		return fmt.Errorf("%w: got %q, derived %q", ErrAgentIDMismatch, id.AgentID, expected)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.identities[id.AgentID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id.AgentID)
	}

	stored := id.clone()
	stored.CreatedAt = r.clk.Now().UTC()
	r.identities[id.AgentID] = stored
	if stored.Name != "" {
		r.byName[stored.Name] = append(r.byName[stored.Name], stored.AgentID)
	}
	r.registered++

	r.logger.Debug("identity registered",
		"agent_id", stored.AgentID,
		"name", stored.Name,
		"key_version", stored.KeyVersion,
		"has_encryption_key", stored.EncryptionPublicKey != nil)
	return nil
}

// Lookup returns the signing public key for an agent ID.
func (r *Registry) Lookup(agentID string) (ed25519.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[agentID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	return append(ed25519.PublicKey(nil), id.PublicKey...), nil
}

// LookupEncryptionKey returns the X25519 encryption public key for an
// agent ID. Distinguishes "unknown agent" (ErrNotFound) from "known
// agent without an encryption key" (ErrNoEncryptionKey) so callers can
// react differently.
func (r *Registry) LookupEncryptionKey(agentID string) (*[EncryptionKeySize]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[agentID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	if id.EncryptionPublicKey == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEncryptionKey, agentID)
	}
	key := *id.EncryptionPublicKey
	return &key, nil
}

// Registered reports whether an agent ID is currently registered.
func (r *Registry) Registered(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.identities[agentID]
	return exists
}

// Get returns a copy of the full identity record.
func (r *Registry) Get(agentID string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.identities[agentID]
	if !exists {
		return Identity{}, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	return *id.clone(), nil
}

// Deregister removes an identity, including its name-index entry.
// No dangling references remain: a subsequent LookupByName for the
// identity's name will not return the removed agent ID.
func (r *Registry) Deregister(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.identities[agentID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}

	delete(r.identities, agentID)
	if id.Name != "" {
		r.removeNameEntryLocked(id.Name, agentID)
	}
	r.deregistered++

	r.logger.Debug("identity deregistered", "agent_id", agentID, "name", id.Name)
	return nil
}

// removeNameEntryLocked deletes agentID from the name index, dropping
// the name key entirely once its last entry is gone.
func (r *Registry) removeNameEntryLocked(name, agentID string) {
	entries := r.byName[name]
	kept := entries[:0]
	for _, entry := range entries {
		if entry != agentID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(r.byName, name)
		return
	}
	r.byName[name] = kept
}

// LookupByName returns the agent IDs registered under a name, in
// registration order. Names are not unique.
func (r *Registry) LookupByName(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, exists := r.byName[name]
	if !exists {
		return nil, fmt.Errorf("%w: no identity named %q", ErrNotFound, name)
	}
	return append([]string(nil), entries...), nil
}

// Stats is a snapshot of registry counters.
type Stats struct {
	// Registered is the total number of successful registrations
	// over the registry's lifetime.
	Registered uint64

	// Deregistered is the total number of removals.
	Deregistered uint64

	// Active is the current number of stored identities.
	Active int
}

// Stats returns current registry counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Registered:   r.registered,
		Deregistered: r.deregistered,
		Active:       len(r.identities),
	}
}
