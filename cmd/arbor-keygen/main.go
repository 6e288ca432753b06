// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// arbor-keygen generates an agent identity keypair and prints the
// derived agent ID along with the key material.
//
// The agent ID and public keys go to stdout; the private keys go to
// stderr so that redirecting stdout into a registration manifest does
// not capture secrets. With --json the full keypair is printed to
// stdout as one JSON object for machine consumption.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/arbor-foundation/arbor/lib/identity"
	"github.com/arbor-foundation/arbor/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// keypairOutput is the --json shape. Keys are lowercase hex.
type keypairOutput struct {
	AgentID              string `json:"agent_id"`
	PublicKey            string `json:"public_key"`
	PrivateKey           string `json:"private_key"`
	EncryptionPublicKey  string `json:"encryption_public_key,omitempty"`
	EncryptionPrivateKey string `json:"encryption_private_key,omitempty"`
}

func run() error {
	var withEncryption bool
	var jsonOutput bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("arbor-keygen", pflag.ContinueOnError)
	flagSet.BoolVar(&withEncryption, "encryption", false, "also generate an X25519 encryption keypair")
	flagSet.BoolVar(&jsonOutput, "json", false, "print the full keypair as JSON on stdout")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("arbor-keygen %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %q", flagSet.Arg(0))
	}

	keypair, err := identity.GenerateKeypair(withEncryption)
	if err != nil {
		return err
	}

	if jsonOutput {
		output := keypairOutput{
			AgentID:    keypair.AgentID,
			PublicKey:  hex.EncodeToString(keypair.PublicKey),
			PrivateKey: hex.EncodeToString(keypair.PrivateKey),
		}
		if keypair.EncryptionPublicKey != nil {
			output.EncryptionPublicKey = hex.EncodeToString(keypair.EncryptionPublicKey[:])
			output.EncryptionPrivateKey = hex.EncodeToString(keypair.EncryptionPrivateKey[:])
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}

	fmt.Printf("agent_id:   %s\n", keypair.AgentID)
	fmt.Printf("public_key: %s\n", hex.EncodeToString(keypair.PublicKey))
	if keypair.EncryptionPublicKey != nil {
		fmt.Printf("encryption_public_key: %s\n", hex.EncodeToString(keypair.EncryptionPublicKey[:]))
	}

	fmt.Fprintf(os.Stderr, "private_key: %s\n", hex.EncodeToString(keypair.PrivateKey))
	if keypair.EncryptionPrivateKey != nil {
		fmt.Fprintf(os.Stderr, "encryption_private_key: %s\n", hex.EncodeToString(keypair.EncryptionPrivateKey[:]))
	}
	return nil
}
