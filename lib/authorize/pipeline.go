// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arbor-foundation/arbor/lib/clock"
	"github.com/arbor-foundation/arbor/lib/ratelimit"
	"github.com/arbor-foundation/arbor/lib/reflex"
	"github.com/arbor-foundation/arbor/lib/signedreq"
)

// DefaultSubmitTimeout bounds the escalation call into the approval
// subsystem. It is the only cross-service call on the request path.
const DefaultSubmitTimeout = 5 * time.Second

// Errors returned by Authorize.
var (
	ErrNoCapability              = errors.New("authorize: no capability for this action")
	ErrConsensusUnavailable      = errors.New("authorize: approval subsystem unavailable")
	ErrConsensusSubmissionFailed = errors.New("authorize: proposal submission failed")
	ErrPrincipalMismatch         = errors.New("authorize: signed request agent differs from requesting principal")
	ErrBlocked                   = errors.New("authorize: blocked by reflex rule")
)

// BlockedError is returned when a reflex rule vetoes the request. It
// satisfies errors.Is(err, ErrBlocked) and carries the firing rule's
// coordinates for the caller's error report.
type BlockedError struct {
	RuleID  string
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("authorize: blocked by reflex rule %s: %s", e.RuleID, e.Message)
}

// Is makes errors.Is(err, ErrBlocked) succeed for BlockedError values.
func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// Status classifies a successful authorization decision.
type Status string

const (
	// StatusAuthorized means the request may proceed now.
	StatusAuthorized Status = "authorized"

	// StatusPendingApproval means the request was escalated; the
	// caller holds a proposal ID and must wait for adjudication to
	// arrive through its own subscription.
	StatusPendingApproval Status = "pending_approval"
)

// Decision is the successful result of Authorize.
type Decision struct {
	Status Status

	// ProposalID is set when Status is StatusPendingApproval.
	ProposalID string
}

// Request is one authorization question: may Principal perform Action
// on Resource right now?
type Request struct {
	// Principal is the requesting agent ID.
	Principal string

	// Resource is the arbor:// URI being acted on.
	Resource string

	// Action is what the principal wants to do.
	Action Action

	// Payload is the free-text input associated with the action
	// (command line, file path, target address). Checked against the
	// reflex engine when non-empty.
	Payload string

	// Signed carries cryptographic proof of the caller's identity.
	// Verified only for restricted-namespace resources.
	Signed *signedreq.Request
}

// Options configures a Pipeline.
type Options struct {
	// Capabilities is the external grant store. Required.
	Capabilities CapabilityStore

	// Approval is the external approval subsystem. Nil means no
	// approval subsystem is configured; grants requiring approval
	// then fail with ErrConsensusUnavailable.
	Approval Approval

	// Verifier authenticates signed requests on restricted
	// resources. Nil disables signed-request verification.
	Verifier *signedreq.Verifier

	// Reflex is the pattern veto engine. Nil disables reflex checks.
	Reflex *reflex.Engine

	// Limiter rate-limits per (principal, resource). Nil disables
	// rate limiting.
	Limiter *ratelimit.Limiter

	// Auditor receives every full-path decision. Defaults to a
	// LogAuditor on Logger.
	Auditor Auditor

	// RestrictedNamespaces lists resource namespaces that force the
	// full pipeline, signed-request verification included
	// (e.g. "security", "identity").
	RestrictedNamespaces []string

	// DefaultMaxTokens is the rate bucket capacity used until a
	// grant constraint overrides it. Defaults to
	// ratelimit.DefaultMaxTokens.
	DefaultMaxTokens int

	// OverrideTTL is how long an untouched grant-constraint capacity
	// override is remembered. Defaults to ratelimit.DefaultBucketTTL,
	// matching the lifetime of the bucket it resizes.
	OverrideTTL time.Duration

	// SubmitTimeout bounds the escalation call. Defaults to
	// DefaultSubmitTimeout.
	SubmitTimeout time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Pipeline composes the kernel's checks into the authorization
// decision callers invoke. See Authorize for the decision sequence.
type Pipeline struct {
	capabilities CapabilityStore
	approval     Approval
	verifier     *signedreq.Verifier
	reflexEngine *reflex.Engine
	limiter      *ratelimit.Limiter
	auditor      Auditor
	restricted   map[string]bool

	defaultMaxTokens int
	submitTimeout    time.Duration
	overrideTTL      time.Duration
	clk              clock.Clock
	logger           *slog.Logger

	// tokenOverrides remembers per-key bucket capacities learned
	// from grant constraints, so the rate-limit step (which runs
	// before the grant is fetched) applies them on subsequent
	// requests. Entries idle past overrideTTL are pruned whenever a
	// new override lands, keeping the map bounded the same way the
	// limiter's buckets are.
	mu             sync.Mutex
	tokenOverrides map[ratelimit.Key]*tokenOverride
}

// tokenOverride is one remembered grant-constraint capacity.
type tokenOverride struct {
	maxTokens int
	lastUsed  time.Time
}

// New creates a Pipeline. Panics if Capabilities is nil.
func New(opts Options) *Pipeline {
	if opts.Capabilities == nil {
		panic("authorize: Options.Capabilities is required")
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = ratelimit.DefaultMaxTokens
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.OverrideTTL <= 0 {
		opts.OverrideTTL = ratelimit.DefaultBucketTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Auditor == nil {
		opts.Auditor = &LogAuditor{Logger: opts.Logger}
	}

	restricted := make(map[string]bool, len(opts.RestrictedNamespaces))
	for _, namespace := range opts.RestrictedNamespaces {
		restricted[namespace] = true
	}

	return &Pipeline{
		capabilities:     opts.Capabilities,
		approval:         opts.Approval,
		verifier:         opts.Verifier,
		reflexEngine:     opts.Reflex,
		limiter:          opts.Limiter,
		auditor:          opts.Auditor,
		restricted:       restricted,
		defaultMaxTokens: opts.DefaultMaxTokens,
		submitTimeout:    opts.SubmitTimeout,
		overrideTTL:      opts.OverrideTTL,
		clk:              opts.Clock,
		logger:           opts.Logger,
		tokenOverrides:   make(map[ratelimit.Key]*tokenOverride),
	}
}

// Authorize runs the full decision sequence:
//
//  1. For restricted-namespace resources, verify the signed request
//     when one is present and confirm it was signed by the requesting
//     principal.
//  2. Check the payload and the resource path against the reflex
//     engine: a block is terminal, a warn is recorded and processing
//     continues.
//  3. Consume a rate-limit token for (principal, resource).
//  4. Ask the capability store for a matching grant.
//  5. If the grant requires approval, submit a proposal to the
//     approval subsystem with a bounded timeout and return a pending
//     decision carrying the proposal ID — never waiting for the
//     verdict.
//
// Every terminal outcome, success or denial, reaches the auditor.
func (p *Pipeline) Authorize(ctx context.Context, request Request) (Decision, error) {
	resource, err := ParseResource(request.Resource)
	if err != nil {
		return Decision{}, err
	}

	record := AuditRecord{
		Time:        p.clk.Now().UTC(),
		PrincipalID: request.Principal,
		ResourceURI: request.Resource,
		Action:      request.Action,
	}

	if p.restricted[resource.Namespace] && p.verifier != nil && request.Signed != nil {
		agentID, err := p.verifier.Verify(request.Signed)
		if err != nil {
			return Decision{}, p.deny(record, "verification_failed", err)
		}
		if agentID != request.Principal {
			return Decision{}, p.deny(record, "principal_mismatch",
				fmt.Errorf("%w: signed by %s, requested for %s", ErrPrincipalMismatch, agentID, request.Principal))
		}
	}

	// Both the free-text payload and the resource path face the reflex
	// engine: a grant never outranks a block rule, and the full path
	// must veto at least everything the fast path does.
	if p.reflexEngine != nil {
		for _, input := range [...]string{request.Payload, resource.Path} {
			if input == "" {
				continue
			}
			result := p.reflexEngine.Check(input)
			switch result.Outcome {
			case reflex.OutcomeBlock:
				record.BlockRuleID = result.Rule.ID
				return Decision{}, p.deny(record, "reflex_blocked",
					&BlockedError{RuleID: result.Rule.ID, Message: result.Rule.Message})
			case reflex.OutcomeWarn:
				if record.WarnRuleID == "" {
					record.WarnRuleID = result.Rule.ID
				}
				p.logger.Warn("reflex warning",
					"rule_id", result.Rule.ID,
					"principal_id", request.Principal,
					"message", result.Rule.Message)
			}
		}
	}

	if p.limiter != nil {
		key := ratelimit.Key{Principal: request.Principal, Resource: request.Resource}
		if err := p.limiter.Consume(request.Principal, request.Resource, p.maxTokensFor(key)); err != nil {
			return Decision{}, p.deny(record, "rate_limited", err)
		}
	}

	grant, found := p.capabilities.GrantFor(request.Principal, request.Resource, request.Action)
	if !found {
		return Decision{}, p.deny(record, "no_capability",
			fmt.Errorf("%w: %s on %s for %s", ErrNoCapability, request.Action, request.Resource, request.Principal))
	}

	if grant.Constraints.MaxTokens > 0 {
		p.setTokenOverride(ratelimit.Key{Principal: request.Principal, Resource: request.Resource}, grant.Constraints.MaxTokens)
	}

	if grant.Constraints.RequiresApproval {
		return p.escalate(ctx, request, grant, record)
	}

	record.Status = auditStatusAuthorized
	p.auditor.Record(record)
	return Decision{Status: StatusAuthorized}, nil
}

// Can is the fast-path, read-only variant: no signed-request
// verification, no rate-token consumption, no escalation, no audit.
// It answers whether a grant exists (and no reflex rule categorically
// blocks the resource path) and is intended for hot-path checks on
// non-restricted resources.
func (p *Pipeline) Can(principal, resourceURI string, action Action) bool {
	resource, err := ParseResource(resourceURI)
	if err != nil {
		return false
	}

	if p.reflexEngine != nil && resource.Path != "" {
		if result := p.reflexEngine.Check(resource.Path); result.Outcome == reflex.OutcomeBlock {
			return false
		}
	}

	return p.capabilities.HasGrant(principal, resourceURI, action)
}

// escalate builds the authorization proposal and hands it to the
// approval subsystem. Fire-and-return: the caller gets the proposal
// ID immediately and learns the verdict through its own channel.
func (p *Pipeline) escalate(ctx context.Context, request Request, grant Grant, record AuditRecord) (Decision, error) {
	if p.approval == nil {
		return Decision{}, p.deny(record, "consensus_unavailable",
			fmt.Errorf("%w: no approval subsystem configured", ErrConsensusUnavailable))
	}
	if !p.approval.Healthy() {
		return Decision{}, p.deny(record, "consensus_unavailable", ErrConsensusUnavailable)
	}

	proposal := Proposal{
		Proposer:   request.Principal,
		ChangeType: ProposalChangeType,
		Metadata: ProposalMetadata{
			PrincipalID:  request.Principal,
			ResourceURI:  request.Resource,
			CapabilityID: grant.CapabilityID,
		},
	}

	submitCtx, cancel := context.WithTimeout(ctx, p.submitTimeout)
	defer cancel()

	proposalID, err := p.approval.Submit(submitCtx, proposal)
	if err != nil {
		return Decision{}, p.deny(record, "consensus_submission_failed",
			fmt.Errorf("%w: %w", ErrConsensusSubmissionFailed, err))
	}

	record.Status = auditStatusPending
	record.ProposalID = proposalID
	p.auditor.Record(record)
	return Decision{Status: StatusPendingApproval, ProposalID: proposalID}, nil
}

// deny audits a denial and passes the error through.
func (p *Pipeline) deny(record AuditRecord, reason string, err error) error {
	record.Status = auditStatusDenied
	record.Reason = reason
	p.auditor.Record(record)
	return err
}

// maxTokensFor returns the bucket capacity for a key: the last grant
// constraint seen for it, or the pipeline default.
func (p *Pipeline) maxTokensFor(key ratelimit.Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if override, exists := p.tokenOverrides[key]; exists {
		override.lastUsed = p.clk.Now()
		return override.maxTokens
	}
	return p.defaultMaxTokens
}

// setTokenOverride records a grant's capacity constraint. The map only
// grows here, so pruning idle entries here bounds it.
func (p *Pipeline) setTokenOverride(key ratelimit.Key, maxTokens int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clk.Now()
	for existing, override := range p.tokenOverrides {
		if now.Sub(override.lastUsed) > p.overrideTTL {
			delete(p.tokenOverrides, existing)
		}
	}
	p.tokenOverrides[key] = &tokenOverride{maxTokens: maxTokens, lastUsed: now}
}
