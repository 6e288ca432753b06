// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

func testKey(t *testing.T, seed byte) ed25519.PublicKey {
	t.Helper()
	seedBytes := make([]byte, ed25519.SeedSize)
	for i := range seedBytes {
		seedBytes[i] = seed
	}
	return ed25519.NewKeyFromSeed(seedBytes).Public().(ed25519.PublicKey)
}

func TestDeriveAgentIDShape(t *testing.T) {
	agentID := DeriveAgentID(testKey(t, 1))

	if !strings.HasPrefix(agentID, AgentIDPrefix) {
		t.Errorf("agent ID %q lacks prefix %q", agentID, AgentIDPrefix)
	}
	if len(agentID) != AgentIDLength {
		t.Errorf("agent ID length = %d, want %d", len(agentID), AgentIDLength)
	}
	if err := ValidateAgentID(agentID); err != nil {
		t.Errorf("ValidateAgentID(%q): %v", agentID, err)
	}
}

func TestDeriveAgentIDDeterministic(t *testing.T) {
	key := testKey(t, 2)
	if first, second := DeriveAgentID(key), DeriveAgentID(key); first != second {
		t.Errorf("derivation not deterministic: %q vs %q", first, second)
	}
}

func TestDeriveAgentIDDistinctKeys(t *testing.T) {
	if a, b := DeriveAgentID(testKey(t, 3)), DeriveAgentID(testKey(t, 4)); a == b {
		t.Errorf("distinct keys derived the same agent ID %q", a)
	}
}

func TestValidateAgentID(t *testing.T) {
	valid := DeriveAgentID(testKey(t, 5))

	tests := []struct {
		name    string
		agentID string
		wantErr bool
	}{
		{"derived ID", valid, false},
		{"empty", "", true},
		{"wrong prefix", "axb-" + valid[4:], true},
		{"too short", valid[:10], true},
		{"uppercase hex", strings.ToUpper(valid), true},
		{"non-hex character", valid[:AgentIDLength-1] + "z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgentID(tt.agentID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAgentID(%q) error = %v, wantErr %v", tt.agentID, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateKeypair(t *testing.T) {
	pair, err := GenerateKeypair(false)
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if pair.AgentID != DeriveAgentID(pair.PublicKey) {
		t.Errorf("keypair agent ID %q does not match derivation", pair.AgentID)
	}
	if pair.EncryptionPublicKey != nil {
		t.Error("encryption key generated without being requested")
	}

	// The signing pair must actually sign/verify.
	message := []byte("probe")
	if !ed25519.Verify(pair.PublicKey, message, ed25519.Sign(pair.PrivateKey, message)) {
		t.Error("generated keypair failed a sign/verify round trip")
	}
}

func TestGenerateKeypairWithEncryption(t *testing.T) {
	pair, err := GenerateKeypair(true)
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if pair.EncryptionPublicKey == nil || pair.EncryptionPrivateKey == nil {
		t.Fatal("encryption keypair missing")
	}

	id := pair.Identity("worker", 1)
	if id.EncryptionPublicKey == nil {
		t.Error("Identity() dropped the encryption public key")
	}
	if id.AgentID != pair.AgentID {
		t.Errorf("Identity() agent ID = %q, want %q", id.AgentID, pair.AgentID)
	}
}
