// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package reflex

// builtinRules is the fixed rule set loaded at engine construction.
// Three categories: destructive/privileged shell commands, sensitive
// file paths, and network targets. Priority 100 marks patterns that
// are dangerous in any context and always block; 70–90 marks
// contextual patterns that warn and leave the decision to the
// capability check.
//
// Regex rules match free text (command lines, request payloads); glob
// rules match paths.
var builtinRules = []Rule{
	// --- Destructive / privileged shell commands ---
	{
		ID:       "shell/rm-root",
		Kind:     KindRegex,
		Pattern:  `\brm\s+(-[a-zA-Z]*[rR][a-zA-Z]*\s+)+(/|~)(\s*$|/?\*)`,
		Response: ResponseBlock,
		Message:  "recursive delete of the filesystem root or home directory",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "shell/disk-device-write",
		Kind:     KindRegex,
		Pattern:  `\b(dd\s+[^|;]*of=|>\s*)/dev/(sd|hd|vd|xvd|nvme)`,
		Response: ResponseBlock,
		Message:  "direct write to a raw disk device",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "shell/mkfs",
		Kind:     KindRegex,
		Pattern:  `\bmkfs(\.[a-z0-9]+)?\s`,
		Response: ResponseBlock,
		Message:  "filesystem format command",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "shell/download-pipe-shell",
		Kind:     KindRegex,
		Pattern:  `\b(curl|wget)\b[^|;&]*\|\s*(sudo\s+)?(ba|z|da|fi)?sh\b`,
		Response: ResponseBlock,
		Message:  "piping a download directly into a shell",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "shell/fork-bomb",
		Kind:     KindRegex,
		Pattern:  `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;?\s*:`,
		Response: ResponseBlock,
		Message:  "fork bomb",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "shell/privilege-escalation",
		Kind:     KindRegex,
		Pattern:  `^\s*(sudo|doas)\s|[|;&]\s*(sudo|doas)\s|\bsu\s+(-|root)\b`,
		Response: ResponseWarn,
		Message:  "privilege escalation command",
		Priority: 80,
		Enabled:  true,
	},

	// --- Sensitive file paths ---
	{
		ID:       "path/private-key",
		Kind:     KindGlob,
		Pattern:  `**/id_{rsa,ed25519,ecdsa,dsa}`,
		Response: ResponseBlock,
		Message:  "SSH private key",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "path/shadow",
		Kind:     KindGlob,
		Pattern:  `/etc/{shadow,gshadow}`,
		Response: ResponseBlock,
		Message:  "system password hash database",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "path/credential-store",
		Kind:     KindGlob,
		Pattern:  `**/{.netrc,.pgpass,.npmrc,.git-credentials}`,
		Response: ResponseBlock,
		Message:  "stored credentials file",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "path/cloud-credentials",
		Kind:     KindGlob,
		Pattern:  `**/.aws/credentials`,
		Response: ResponseBlock,
		Message:  "cloud credentials file",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "path/env-file",
		Kind:     KindGlob,
		Pattern:  `**/.env*`,
		Response: ResponseWarn,
		Message:  "environment file, commonly holds secrets",
		Priority: 85,
		Enabled:  true,
	},
	{
		ID:       "path/pem-file",
		Kind:     KindGlob,
		Pattern:  `**/*.pem`,
		Response: ResponseWarn,
		Message:  "PEM file, may contain a private key",
		Priority: 85,
		Enabled:  true,
	},
	{
		ID:       "path/passwd",
		Kind:     KindGlob,
		Pattern:  `/etc/passwd`,
		Response: ResponseWarn,
		Message:  "system account database",
		Priority: 75,
		Enabled:  true,
	},

	// --- Network targets ---
	{
		ID:       "net/metadata-endpoint",
		Kind:     KindRegex,
		Pattern:  `169\.254\.169\.254|metadata\.google\.internal`,
		Response: ResponseBlock,
		Message:  "cloud instance metadata endpoint",
		Priority: 100,
		Enabled:  true,
	},
	{
		ID:       "net/loopback",
		Kind:     KindRegex,
		Pattern:  `\b(127\.0\.0\.1|0\.0\.0\.0|localhost)\b`,
		Response: ResponseWarn,
		Message:  "loopback address",
		Priority: 75,
		Enabled:  true,
	},
	{
		ID:       "net/private-range",
		Kind:     KindRegex,
		Pattern:  `\b(10\.\d{1,3}\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3}|172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3})\b`,
		Response: ResponseWarn,
		Message:  "private network address",
		Priority: 70,
		Enabled:  true,
	},
}
