// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"

	"github.com/p2paste/p2paste/cmd/p2paste/cli"
	"github.com/p2paste/p2paste/lib/version"
)

func versionCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}
			version.Print(stdout, "p2paste")
			return nil
		},
	}
}
