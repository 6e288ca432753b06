// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import "fmt"

// Action is the closed set of operations a principal can request on a
// resource. The set is fixed at compile time: untrusted strings are
// converted through ParseAction, which rejects anything outside the
// enumeration instead of minting new values from caller input.
type Action string

const (
	ActionRead      Action = "read"
	ActionWrite     Action = "write"
	ActionExecute   Action = "execute"
	ActionDelete    Action = "delete"
	ActionSubscribe Action = "subscribe"
	ActionPublish   Action = "publish"
	ActionAdmin     Action = "admin"
)

// Actions lists every member of the enumeration.
var Actions = []Action{
	ActionRead,
	ActionWrite,
	ActionExecute,
	ActionDelete,
	ActionSubscribe,
	ActionPublish,
	ActionAdmin,
}

// ParseAction converts an untrusted string to an Action.
func ParseAction(s string) (Action, error) {
	for _, action := range Actions {
		if Action(s) == action {
			return action, nil
		}
	}
	return "", fmt.Errorf("authorize: unknown action %q", s)
}
