// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package reflex

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML shape of a custom rule file.
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

// ruleEntry mirrors Rule with string-typed enumerations so unknown
// kinds and responses are rejected explicitly rather than coerced.
type ruleEntry struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Pattern  string `yaml:"pattern"`
	Response string `yaml:"response"`
	Message  string `yaml:"message"`
	Priority int    `yaml:"priority"`
	Enabled  *bool  `yaml:"enabled"` // omitted means enabled
}

// LoadRules registers custom rules from a YAML file and returns how
// many were added. Loading stops at the first invalid or colliding
// rule; rules registered before the failure stay registered.
//
// File format:
//
//	rules:
//	  - id: custom/no-prod-drop
//	    kind: regex
//	    pattern: 'drop\s+table'
//	    response: block
//	    message: destructive SQL against production
//	    priority: 95
func (e *Engine) LoadRules(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reflex: reading rule file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("reflex: parsing rule file %s: %w", path, err)
	}

	added := 0
	for _, entry := range file.Rules {
		kind, err := ParseMatcherKind(entry.Kind)
		if err != nil {
			return added, fmt.Errorf("rule %s: %w", entry.ID, err)
		}
		response, err := ParseResponse(entry.Response)
		if err != nil {
			return added, fmt.Errorf("rule %s: %w", entry.ID, err)
		}

		rule := Rule{
			ID:       entry.ID,
			Kind:     kind,
			Pattern:  entry.Pattern,
			Response: response,
			Message:  entry.Message,
			Priority: entry.Priority,
			Enabled:  entry.Enabled == nil || *entry.Enabled,
		}
		if err := e.Register(rule, false); err != nil {
			return added, err
		}
		added++
	}

	e.logger.Info("reflex rules loaded", "path", path, "added", added)
	return added, nil
}
