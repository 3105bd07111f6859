// Package app wires the terminal client together: config, logging, server
// discovery, the HTTP client and the sync session, then hands control to
// either the TUI or the file mirror.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/client/config"
	"github.com/collabedit/docsync/internal/client/docapi"
	"github.com/collabedit/docsync/internal/client/mirror"
	"github.com/collabedit/docsync/internal/client/syncclient"
	"github.com/collabedit/docsync/internal/client/syncstatus"
	"github.com/collabedit/docsync/internal/client/tui"
	"github.com/collabedit/docsync/internal/discovery"
	"github.com/collabedit/docsync/pkg/logger"
)

const (
	discoverTimeout = 3 * time.Second
	flushTimeout    = 5 * time.Second
)

// Options are the command line overrides. Empty fields keep the config file
// value.
type Options struct {
	ConfigPath string
	Server     string
	Username   string
	Document   string
	// MirrorPath runs headless, syncing the document to this file.
	MirrorPath string
	// Discover looks the server up over mDNS instead of using ServerURL.
	Discover bool
}

func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load client config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logFile, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Output: logFile, Service: "docsync"})

	if opts.Discover {
		url, err := discovery.Lookup(ctx, discoverTimeout)
		if err != nil {
			return fmt.Errorf("discover server: %w", err)
		}
		log.Info().Str("server", url).Msg("server discovered")
		cfg.ServerURL = url
	}

	client, err := docapi.New(docapi.Options{
		BaseURL:    cfg.ServerURL,
		DocumentID: cfg.Document,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	log = log.With().Str("session", client.SessionID()).Str("document", cfg.Document).Logger()

	if opts.MirrorPath != "" {
		return runMirror(ctx, cfg, client, opts.MirrorPath, log)
	}

	return tui.Run(tui.Options{
		Context:  ctx,
		Login:    client.Login,
		Username: cfg.Username,
		Server:   cfg.ServerURL,
		NewSession: func(onContent func(string), onStatus func(syncstatus.Transition)) tui.Session {
			return syncclient.New(client, syncclient.Options{
				PollInterval: cfg.PollInterval,
				QuietPeriod:  cfg.QuietPeriod,
				Logger:       log,
				OnContent:    onContent,
				OnStatus:     onStatus,
			})
		},
	})
}

func applyOverrides(cfg *config.Config, opts Options) {
	if s := strings.TrimSpace(opts.Server); s != "" {
		cfg.ServerURL = s
	}
	if s := strings.TrimSpace(opts.Username); s != "" {
		cfg.Username = s
	}
	if s := strings.TrimSpace(opts.Document); s != "" {
		cfg.Document = s
	}
}

func runMirror(ctx context.Context, cfg config.Config, client *docapi.Client, path string, log zerolog.Logger) error {
	m, err := mirror.New(path, log)
	if err != nil {
		return err
	}

	session := syncclient.New(client, syncclient.Options{
		PollInterval: cfg.PollInterval,
		QuietPeriod:  cfg.QuietPeriod,
		Logger:       log,
		OnContent: func(content string) {
			if err := m.Apply(content); err != nil {
				log.Error().Err(err).Str("path", m.Path()).Msg("mirror write failed")
			}
		},
		OnStatus: func(t syncstatus.Transition) {
			fmt.Fprintf(os.Stderr, "%s\n", t.To.Label())
		},
	})
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	log.Info().Str("path", m.Path()).Msg("mirroring document")
	runErr := m.Run(ctx, session)

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := session.Flush(flushCtx); err != nil {
		log.Warn().Err(err).Msg("final save failed")
	}
	return runErr
}
