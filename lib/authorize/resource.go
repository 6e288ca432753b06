// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme is the URI scheme for Arbor resources.
const Scheme = "arbor"

// schemePrefix is the literal prefix of every resource URI.
const schemePrefix = Scheme + "://"

// ErrInvalidResource is returned when a resource URI does not parse.
var ErrInvalidResource = errors.New("authorize: invalid resource URI")

// Resource is a parsed capability URI:
//
//	arbor://<namespace>/<action>/<resource-path>
//	arbor://signals/subscribe/security
//
// Namespace and Action are required; Path may be empty (an action on
// the namespace itself, e.g. arbor://shell/execute).
type Resource struct {
	Namespace string
	Action    string
	Path      string
}

// ParseResource parses a resource URI. The namespace and action
// segments must be non-empty; everything after the action is the
// resource path, slashes included.
func ParseResource(uri string) (Resource, error) {
	rest, found := strings.CutPrefix(uri, schemePrefix)
	if !found {
		return Resource{}, fmt.Errorf("%w: %q does not start with %q", ErrInvalidResource, uri, schemePrefix)
	}

	parts := strings.SplitN(rest, "/", 3)
	if parts[0] == "" {
		return Resource{}, fmt.Errorf("%w: %q has an empty namespace", ErrInvalidResource, uri)
	}
	if len(parts) < 2 || parts[1] == "" {
		return Resource{}, fmt.Errorf("%w: %q has no action segment", ErrInvalidResource, uri)
	}

	resource := Resource{Namespace: parts[0], Action: parts[1]}
	if len(parts) == 3 {
		resource.Path = parts[2]
	}
	return resource, nil
}

// URI renders the resource back to its canonical string form.
func (r Resource) URI() string {
	if r.Path == "" {
		return schemePrefix + r.Namespace + "/" + r.Action
	}
	return schemePrefix + r.Namespace + "/" + r.Action + "/" + r.Path
}
