// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/p2paste/p2paste/cmd/p2paste/cli"
	"github.com/p2paste/p2paste/lib/config"
	"github.com/p2paste/p2paste/session"
)

type serveOptions struct {
	configPath string
	bindHost   string
	logFile    string
	port       int
}

func serveCommand() *cli.Command {
	var options serveOptions
	return &cli.Command{
		Name:    "serve",
		Summary: "Host a chat session",
		Description: `Host a chat session until interrupted.

The server verifies every client's nickname, relays messages to all
other clients, and grants paste permission to one requester at a time
in request order. A grant lasts until the holder pastes or
server.max_paste_duration elapses.

A requested port below server.min_port (1024 by default) falls back to
server.port.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVarP(&options.configPath, "config", "c", "", "configuration file (default $"+config.EnvironmentVariable+", then built-in defaults)")
			flagSet.IntVarP(&options.port, "port", "p", 0, "port to host on (default server.port)")
			flagSet.StringVar(&options.bindHost, "bind", "", "local address to listen on (default server.bind_host, all interfaces)")
			flagSet.StringVar(&options.logFile, "log-file", "", "append JSON log records to this file instead of stderr")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Host on the default port", Command: "p2paste serve"},
			{Description: "Host on port 9000 with a config file", Command: "p2paste serve --port 9000 --config p2paste.yaml"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}
			return runServe(options)
		},
	}
}

func runServe(options serveOptions) error {
	cfg, err := config.Load(options.configPath)
	if err != nil {
		return err
	}

	handler, closeLog, err := openLogHandler(cfg.Log, options.logFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(handler)

	port, fellBack := cfg.Server.HostPort(options.port)
	if fellBack && options.port != 0 {
		logger.Warn("requested port not allowed, using the default",
			"requested", options.port,
			"min_port", cfg.Server.MinPort,
			"port", port,
		)
	}

	serverConfig, err := sessionConfig(cfg, options.bindHost, logger)
	if err != nil {
		return err
	}
	server := session.New(serverConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, boundPort, err := server.Host(port)
	if err != nil {
		return fmt.Errorf("hosting on port %d: %w", port, err)
	}
	logger.Info("accepting connections", "address", net.JoinHostPort(host, strconv.Itoa(boundPort)))

	<-ctx.Done()
	logger.Info("shutting down")
	return server.Close()
}
