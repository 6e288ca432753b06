// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package authorize composes the kernel's checks into a single
// authorization decision.
//
// A Pipeline answers "may this principal perform this action on this
// resource right now?" by running, in order: signed-request
// verification (restricted namespaces only), the reflex pattern
// engine, the per-(principal, resource) rate limiter, and the
// capability grant lookup. Grants whose constraints require approval
// are escalated to the external approval subsystem as a proposal; the
// pipeline returns the proposal ID immediately and never waits for
// adjudication.
//
// The capability store and the approval subsystem are consumed
// interfaces — the kernel reads grants and submits proposals but owns
// neither. Every full-path decision, authorized or denied, is
// reported to the configured Auditor.
//
// Can is the cheap read-only variant for hot-path checks: it consults
// only the reflex engine and the grant store, consuming nothing and
// auditing nothing.
package authorize
