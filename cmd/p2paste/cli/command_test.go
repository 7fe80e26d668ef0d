// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// testTree builds "app" with a "serve" subcommand taking --port. The
// returned pointers observe what serve's Run saw.
func testTree(output *bytes.Buffer) (root *Command, port *int, ran *[]string) {
	port = new(int)
	ran = new([]string)
	serve := &Command{
		Name:    "serve",
		Summary: "Host a session",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.IntVarP(port, "port", "p", 8956, "port to host on")
			return flagSet
		},
		Examples: []Example{{Description: "Host on a custom port", Command: "app serve --port 9000"}},
		Run: func(args []string) error {
			*ran = append([]string{"serve"}, args...)
			return nil
		},
	}
	root = &Command{
		Name:        "app",
		Summary:     "Test application",
		Subcommands: []*Command{serve},
		Output:      output,
	}
	return root, port, ran
}

func TestExecuteDispatches(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, port, ran := testTree(&output)

	if err := root.Execute([]string{"serve", "--port", "9000", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if *port != 9000 {
		t.Errorf("port = %d, want 9000", *port)
	}
	if !slices.Equal(*ran, []string{"serve", "extra"}) {
		t.Errorf("Run saw %q", *ran)
	}
}

func TestExecuteShorthandFlag(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, port, _ := testTree(&output)

	if err := root.Execute([]string{"serve", "-p", "1234"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if *port != 1234 {
		t.Errorf("port = %d, want 1234", *port)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, _, _ := testTree(&output)

	err := root.Execute([]string{"serv"})
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("Execute error = %v, want a UsageError", err)
	}
	if usage.ExitCode() != ExitUsage {
		t.Errorf("ExitCode = %d, want %d", usage.ExitCode(), ExitUsage)
	}
	if !strings.Contains(err.Error(), `did you mean "serve"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, _, ran := testTree(&output)

	err := root.Execute([]string{"serve", "--prot", "1"})
	if err == nil {
		t.Fatal("Execute accepted an unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --port?") {
		t.Errorf("error = %q, want a --port suggestion", err)
	}
	if len(*ran) != 0 {
		t.Error("Run executed despite the flag error")
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, _, _ := testTree(&output)

	err := root.Execute(nil)
	var usage *UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("Execute error = %v, want a UsageError", err)
	}
	if !strings.Contains(output.String(), "Commands:") {
		t.Errorf("help not printed:\n%s", output.String())
	}
}

func TestHelp(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root, _, ran := testTree(&output)

	if err := root.Execute([]string{"serve", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(*ran) != 0 {
		t.Error("Run executed for --help")
	}
	help := output.String()
	for _, want := range []string{"Host a session", "Usage:\n  app serve [flags]", "--port", "# Host on a custom port"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "chat", 4},
		{"chat", "chat", 0},
		{"caht", "chat", 2},
		{"serve", "serv", 1},
		{"version", "verison", 2},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
