// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package reflex implements Arbor's pattern-matching veto layer: an
// ordered set of rules matched against free-text payloads and paths
// before any capability check runs.
//
// A reflex fires independently of grants — a principal holding a valid
// capability for shell execution is still blocked from "rm -rf /".
// Rules respond with block (terminal) or warn (recorded for audit,
// request proceeds). Evaluation walks enabled rules in priority order,
// highest first, ties broken by registration order; the first firing
// rule decides.
//
// The built-in set ships three categories — destructive shell
// commands, sensitive file paths, network targets — and is immutable.
// Custom rules can be registered at runtime or loaded from a YAML
// file.
//
// The rule set is read-mostly: checks share a read lock and bump
// atomic counters, while registration takes the write lock.
package reflex
