// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"log/slog"
	"time"

	"github.com/arbor-foundation/arbor/lib/codec"
)

// AuditRecord is one authorization decision as reported to the audit
// trail. Records encode deterministically with lib/codec, so the same
// decision always serializes to the same bytes.
type AuditRecord struct {
	Time        time.Time `cbor:"1,keyasint" json:"time"`
	PrincipalID string    `cbor:"2,keyasint" json:"principal_id"`
	ResourceURI string    `cbor:"3,keyasint" json:"resource_uri"`
	Action      Action    `cbor:"4,keyasint" json:"action"`

	// Status is "authorized", "pending_approval", or "denied".
	Status string `cbor:"5,keyasint" json:"status"`

	// Reason classifies a denial (e.g. "rate_limited",
	// "no_capability"). Empty on success.
	Reason string `cbor:"6,keyasint,omitempty" json:"reason,omitempty"`

	// WarnRuleID names a reflex rule that warned without denying.
	WarnRuleID string `cbor:"7,keyasint,omitempty" json:"warn_rule_id,omitempty"`

	// BlockRuleID names the reflex rule that blocked the request.
	BlockRuleID string `cbor:"8,keyasint,omitempty" json:"block_rule_id,omitempty"`

	// ProposalID correlates a pending_approval decision with the
	// escalated proposal.
	ProposalID string `cbor:"9,keyasint,omitempty" json:"proposal_id,omitempty"`
}

// Encode serializes the record to deterministic CBOR for the audit
// bus.
func (r *AuditRecord) Encode() ([]byte, error) {
	return codec.Marshal(r)
}

// Auditor receives authorization decisions. The event/telemetry bus
// behind it is external to the kernel; implementations must not
// block — Record is called synchronously on the request path.
type Auditor interface {
	Record(record AuditRecord)
}

// LogAuditor writes audit records to a structured logger. It is the
// default Auditor when none is configured.
type LogAuditor struct {
	Logger *slog.Logger
}

// Record logs the decision at INFO for successes and WARN for
// denials.
func (a *LogAuditor) Record(record AuditRecord) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"principal_id", record.PrincipalID,
		"resource_uri", record.ResourceURI,
		"action", record.Action,
		"status", record.Status,
	}
	if record.Reason != "" {
		attrs = append(attrs, "reason", record.Reason)
	}
	if record.WarnRuleID != "" {
		attrs = append(attrs, "warn_rule_id", record.WarnRuleID)
	}
	if record.BlockRuleID != "" {
		attrs = append(attrs, "block_rule_id", record.BlockRuleID)
	}
	if record.ProposalID != "" {
		attrs = append(attrs, "proposal_id", record.ProposalID)
	}

	if record.Status == auditStatusDenied {
		logger.Warn("authorization denied", attrs...)
		return
	}
	logger.Info("authorization decision", attrs...)
}

// Audit statuses.
const (
	auditStatusAuthorized = "authorized"
	auditStatusPending    = "pending_approval"
	auditStatusDenied     = "denied"
)
