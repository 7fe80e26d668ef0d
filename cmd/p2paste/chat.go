// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/p2paste/p2paste/chat"
	"github.com/p2paste/p2paste/cmd/p2paste/cli"
	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/lib/chatui"
	"github.com/p2paste/p2paste/lib/config"
)

type chatOptions struct {
	configPath string
	address    string
	nickname   string
	logFile    string
}

func chatCommand() *cli.Command {
	var options chatOptions
	return &cli.Command{
		Name:    "chat",
		Summary: "Join a chat session in the terminal UI",
		Description: `Join a chat session in the terminal UI.

The address defaults to localhost on server.port; a bare host gets
server.port appended. The server certificate is verified against
client.ca_certificate.

The UI owns the terminal, so warnings and errors appear in its status
bar. Use --log-file to keep a full JSON log.`,
		Usage: "p2paste chat --nickname NAME [flags] [ADDRESS]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("chat", pflag.ContinueOnError)
			flagSet.StringVarP(&options.configPath, "config", "c", "", "configuration file (default $"+config.EnvironmentVariable+", then built-in defaults)")
			flagSet.StringVarP(&options.nickname, "nickname", "n", "", "nickname: at least 3 letters, digits, '.', '_' or '-'")
			flagSet.StringVarP(&options.address, "address", "a", "", "server address host[:port] (alternative to the positional argument)")
			flagSet.StringVar(&options.logFile, "log-file", "", "append JSON log records to this file")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Join a local server", Command: "p2paste chat --nickname alice"},
			{Description: "Join a remote server on a custom port", Command: "p2paste chat -n alice chat.example.com:9000"},
		},
		Run: func(args []string) error {
			switch {
			case len(args) > 1:
				return cli.Usage("unexpected argument: %s", args[1])
			case len(args) == 1 && options.address != "":
				return cli.Usage("give the address as --address or as an argument, not both")
			case len(args) == 1:
				options.address = args[0]
			}
			if options.nickname == "" {
				return cli.Usage("--nickname is required")
			}
			if !envelope.ValidNickname(options.nickname) {
				return cli.Usage("%q: %w", options.nickname, chat.ErrInvalidNickname)
			}
			return runChat(options)
		},
	}
}

func runChat(options chatOptions) error {
	cfg, err := config.Load(options.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	var fileHandler slog.Handler
	if path := cmp.Or(options.logFile, cfg.Log.File); path != "" {
		handler, closeLog, err := openFileHandler(path, level)
		if err != nil {
			return err
		}
		defer closeLog()
		fileHandler = handler
	}
	statusHandler := chatui.NewLogHandler(slog.LevelWarn, fileHandler)
	logger := slog.New(statusHandler)

	clientPeer, err := peerConfig(cfg, logger)
	if err != nil {
		return err
	}

	// Handlers only fire once Connect has started the receive loop,
	// after program is assigned.
	var program *tea.Program
	client := chat.New(chat.Config{
		Peer:     clientPeer,
		Handlers: chatui.Handlers(func(message tea.Msg) { program.Send(message) }),
		Logger:   logger,
	})
	model := chatui.NewModel(chatui.Config{
		Nickname:     options.nickname,
		Sender:       client,
		ColorProfile: lipgloss.ColorProfile(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	address := resolveAddress(options.address, cfg)
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Client.Timeout.Std())
	err = client.Connect(connectCtx, address, options.nickname)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer client.Disconnect()

	// Records logged before Run would block in program.Send, so the
	// status bar only starts receiving them now.
	statusHandler.SetProgram(program)
	logger.Debug("chat session started", "address", address, "nickname", options.nickname)

	if _, err := program.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
