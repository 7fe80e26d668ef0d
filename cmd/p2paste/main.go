// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// p2paste is a TLS chat server and terminal chat client in one binary.
// Connected users exchange messages; one user at a time may publish a
// paste, arbitrated by the server in request order.
//
//	p2paste serve [--port N] [--config FILE]
//	p2paste chat --nickname NAME [ADDRESS]
//	p2paste version
//
// Both sides read the same configuration file (YAML, or JSON with
// comments for .json/.jsonc), named by --config or P2PASTE_CONFIG.
// Without one, built-in defaults host on port 8956 with the PEM
// certificate at certificates/cert.pem.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/p2paste/p2paste/cmd/p2paste/cli"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	return rootCommand(os.Stdout, os.Stderr).Execute(args)
}

func rootCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "p2paste",
		Summary:     "Chat with one-at-a-time paste sharing over TLS",
		Description: "p2paste hosts or joins a TLS chat session in which one participant\nat a time may publish a paste.",
		Output:      stderr,
		Subcommands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			versionCommand(stdout),
		},
	}
}
