// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import "context"

// Constraints are the conditions attached to a capability grant that
// the kernel enforces.
type Constraints struct {
	// RequiresApproval routes the request through the external
	// approval subsystem instead of authorizing directly.
	RequiresApproval bool

	// MaxTokens, when positive, overrides the pipeline's default
	// rate-limit bucket capacity for this (principal, resource).
	MaxTokens int
}

// Grant is a capability grant as reported by the external store.
type Grant struct {
	// CapabilityID identifies the grant record in the store.
	CapabilityID string

	// Constraints are the enforcement conditions for this grant.
	Constraints Constraints
}

// CapabilityStore is the consumed interface to the subsystem that
// owns grant records. The kernel never writes grants; it only asks.
type CapabilityStore interface {
	// HasGrant reports whether a grant matches (principal, resource,
	// action). This is the hot-path check behind Pipeline.Can.
	HasGrant(principal, resourceURI string, action Action) bool

	// GrantFor returns the matching grant and its constraints, or
	// false when no grant matches.
	GrantFor(principal, resourceURI string, action Action) (Grant, bool)
}

// ProposalChangeType is the fixed change type of authorization
// escalation proposals.
const ProposalChangeType = "authorization_request"

// ProposalMetadata carries the escalated request's coordinates for the
// approval subsystem's adjudicators.
type ProposalMetadata struct {
	PrincipalID  string `cbor:"1,keyasint" json:"principal_id"`
	ResourceURI  string `cbor:"2,keyasint" json:"resource_uri"`
	CapabilityID string `cbor:"3,keyasint" json:"capability_id"`
}

// Proposal is the escalation payload handed to the approval
// subsystem. The kernel builds it transiently and keeps nothing after
// submission — the proposal belongs to the approval subsystem once
// submitted.
type Proposal struct {
	Proposer   string           `cbor:"1,keyasint" json:"proposer"`
	ChangeType string           `cbor:"2,keyasint" json:"change_type"`
	Metadata   ProposalMetadata `cbor:"3,keyasint" json:"metadata"`
}

// Approval is the consumed interface to the external approval
// subsystem. Submit must respect the context deadline — the pipeline
// calls it with a bounded timeout and treats expiry as a submission
// failure, never blocking a request on adjudication.
type Approval interface {
	// Submit hands a proposal to the approval process and returns
	// its identifier. Adjudication happens asynchronously; the
	// result never flows back through this interface.
	Submit(ctx context.Context, proposal Proposal) (string, error)

	// Healthy reports whether the approval subsystem can currently
	// accept proposals.
	Healthy() bool
}
