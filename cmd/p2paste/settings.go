// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/config"
	"github.com/p2paste/p2paste/mux"
	"github.com/p2paste/p2paste/peer"
	"github.com/p2paste/p2paste/session"
)

// wireSettings extracts the settings both sides share.
func wireSettings(cfg *config.Config) (codec.Codec, uint16, error) {
	wireCodec, err := codec.ByName(cfg.Wire.Codec)
	if err != nil {
		return nil, 0, err
	}
	minVersion, err := cfg.TLS.Version()
	if err != nil {
		return nil, 0, err
	}
	return wireCodec, minVersion, nil
}

func sessionConfig(cfg *config.Config, bindHost string, logger *slog.Logger) (session.Config, error) {
	wireCodec, minVersion, err := wireSettings(cfg)
	if err != nil {
		return session.Config{}, err
	}
	if bindHost == "" {
		bindHost = cfg.Server.BindHost
	}
	return session.Config{
		Identifier:       cfg.Server.Identifier,
		WelcomeMessage:   cfg.Server.WelcomeMessage,
		MaxPasteDuration: cfg.Server.MaxPasteDuration.Std(),
		RequestQueue:     cfg.Server.RequestQueue,
		Network: mux.Config{
			BindHost:     bindHost,
			Certificate:  cfg.Server.Certificate,
			Key:          cfg.Server.Key,
			MinVersion:   minVersion,
			Timeout:      cfg.Server.Timeout.Std(),
			PollInterval: cfg.Wire.PollInterval.Std(),
			Codec:        wireCodec,
		},
		Logger: logger,
	}, nil
}

func peerConfig(cfg *config.Config, logger *slog.Logger) (peer.Config, error) {
	wireCodec, minVersion, err := wireSettings(cfg)
	if err != nil {
		return peer.Config{}, err
	}
	return peer.Config{
		CACertificate: cfg.Client.CACertificate,
		ServerName:    cfg.Client.ServerName,
		MinVersion:    minVersion,
		Timeout:       cfg.Client.Timeout.Std(),
		PollInterval:  cfg.Wire.PollInterval.Std(),
		Codec:         wireCodec,
		Logger:        logger,
	}, nil
}

// resolveAddress fills in what the operator left out of a server
// address: the host defaults to localhost and the port to server.port.
func resolveAddress(address string, cfg *config.Config) string {
	port := strconv.Itoa(cfg.Server.Port)
	if address == "" {
		return net.JoinHostPort("localhost", port)
	}
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), port)
}
