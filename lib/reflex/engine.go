// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package reflex

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Errors returned by Engine operations.
var (
	ErrRuleExists   = errors.New("reflex: rule ID already registered")
	ErrRuleNotFound = errors.New("reflex: rule not found")
	ErrBuiltinRule  = errors.New("reflex: built-in rules cannot be replaced or removed")
)

// Outcome classifies a Check result.
type Outcome string

const (
	// OutcomePass means no enabled rule fired.
	OutcomePass Outcome = "pass"

	// OutcomeBlock means the highest-priority firing rule blocks
	// the request.
	OutcomeBlock Outcome = "block"

	// OutcomeWarn means the highest-priority firing rule warns; the
	// request may proceed but the match is recorded.
	OutcomeWarn Outcome = "warn"
)

// Result is the outcome of a Check, with the firing rule when one
// matched.
type Result struct {
	Outcome Outcome

	// Rule is a copy of the firing rule. Zero-valued for OutcomePass.
	Rule Rule
}

// Engine holds the active rule set. Reads (Check, Get, Rules) take a
// read lock and share freely; registration and removal are infrequent
// and serialized behind the write lock. The built-in rules loaded at
// construction are immutable — they can be neither replaced with
// force nor unregistered.
type Engine struct {
	mu      sync.RWMutex
	rules   map[string]*compiledRule
	ordered []*compiledRule // priority descending, registration order within a priority
	nextSeq int

	// Counters are atomic so Check stays a pure read-lock path.
	checks  atomic.Uint64
	blocked atomic.Uint64
	warned  atomic.Uint64

	logger *slog.Logger
}

// NewEngine creates an Engine preloaded with the built-in rule set.
// A nil logger defaults to slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{
		rules:  make(map[string]*compiledRule),
		logger: logger,
	}
	for _, rule := range builtinRules {
		compiled, err := compile(rule)
		if err != nil {
			// Built-ins are fixed at compile time; a bad pattern is
			// a programming error, not a runtime condition.
			panic("reflex: built-in rule failed to compile: " + err.Error())
		}
		compiled.builtin = true
		compiled.seq = engine.nextSeq
		engine.nextSeq++
		engine.rules[rule.ID] = compiled
	}
	engine.rebuildOrderLocked()
	return engine
}

// Register adds a rule. Without force, a duplicate ID fails with
// ErrRuleExists; with force, an existing custom rule is replaced.
// Built-in rules can never be replaced.
func (e *Engine) Register(rule Rule, force bool) error {
	compiled, err := compile(rule)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, exists := e.rules[rule.ID]; exists {
		if existing.builtin {
			return fmt.Errorf("%w: %s", ErrBuiltinRule, rule.ID)
		}
		if !force {
			return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
		}
		// Replacement keeps the original registration order so a
		// forced re-register does not shuffle tie-breaking.
		compiled.seq = existing.seq
	} else {
		compiled.seq = e.nextSeq
		e.nextSeq++
	}

	e.rules[rule.ID] = compiled
	e.rebuildOrderLocked()
	e.logger.Debug("reflex rule registered",
		"rule_id", rule.ID, "response", rule.Response, "priority", rule.Priority, "force", force)
	return nil
}

// Unregister removes a custom rule.
func (e *Engine) Unregister(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, exists := e.rules[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if rule.builtin {
		return fmt.Errorf("%w: %s", ErrBuiltinRule, id)
	}

	delete(e.rules, id)
	e.rebuildOrderLocked()
	e.logger.Debug("reflex rule unregistered", "rule_id", id)
	return nil
}

// Get returns a copy of the rule with the given ID.
func (e *Engine) Get(id string) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rule, exists := e.rules[id]
	if !exists {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rule.Rule, nil
}

// Rules returns copies of the rule set. With enabledOnly, disabled
// rules are omitted. With sorted, rules come back in evaluation order
// (priority descending, registration order within a priority);
// otherwise in registration order.
func (e *Engine) Rules(enabledOnly, sorted bool) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var source []*compiledRule
	if sorted {
		source = e.ordered
	} else {
		source = make([]*compiledRule, 0, len(e.rules))
		for _, rule := range e.rules {
			source = append(source, rule)
		}
		sort.Slice(source, func(i, j int) bool { return source[i].seq < source[j].seq })
	}

	rules := make([]Rule, 0, len(source))
	for _, rule := range source {
		if enabledOnly && !rule.Enabled {
			continue
		}
		rules = append(rules, rule.Rule)
	}
	return rules
}

// Check evaluates the input against all enabled rules in priority
// order. The first rule that fires determines the outcome; if none
// fires, the result is OutcomePass.
func (e *Engine) Check(input string) Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	e.checks.Add(1)
	for _, rule := range e.ordered {
		if !rule.Enabled || !rule.matches(input) {
			continue
		}
		if rule.Response == ResponseBlock {
			e.blocked.Add(1)
			return Result{Outcome: OutcomeBlock, Rule: rule.Rule}
		}
		e.warned.Add(1)
		return Result{Outcome: OutcomeWarn, Rule: rule.Rule}
	}
	return Result{Outcome: OutcomePass}
}

// rebuildOrderLocked refreshes the evaluation-order slice: priority
// descending, stable over registration order for equal priorities.
func (e *Engine) rebuildOrderLocked() {
	ordered := make([]*compiledRule, 0, len(e.rules))
	for _, rule := range e.rules {
		ordered = append(ordered, rule)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })
	e.ordered = ordered
}

// Stats is a snapshot of engine counters.
type Stats struct {
	// Checks is the total number of Check calls.
	Checks uint64

	// Blocked is the number of checks that ended in a block.
	Blocked uint64

	// Warned is the number of checks that ended in a warn.
	Warned uint64

	// Rules is the current number of registered rules, enabled or
	// not.
	Rules int
}

// Stats returns current engine counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	ruleCount := len(e.rules)
	e.mu.RUnlock()
	return Stats{
		Checks:  e.checks.Load(),
		Blocked: e.blocked.Load(),
		Warned:  e.warned.Load(),
		Rules:   ruleCount,
	}
}
