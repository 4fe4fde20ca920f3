// visiondeck-mcp is a standalone MCP server for a video enhancement backend.
// It holds one session against the backend and exposes the control panel's
// actions as tools over stdio.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/settings"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	configPath := flag.String("config", settings.DefaultPath, "path to settings file (YAML or TOML)")
	backend := flag.String("backend", "", "backend base URL (overrides backend.base_url)")
	probeEvery := flag.Duration("probe", 30*time.Second, "live feed health check interval (0 disables)")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	if *backend != "" {
		cfg.Backend.BaseURL = *backend
		if err := cfg.Validate(); err != nil {
			log.Fatalf("load settings: %v", err)
		}
	}

	// stdout carries the protocol.
	cfg.Log.Stdout = false
	cleanup, err := settings.ConfigureLogging(cfg, "visiondeck-mcp")
	if err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := visiondeck.NewSession(visiondeck.SessionConfig{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		PushAttempts:   cfg.Backend.PushAttempts,
		PushBackoff:    cfg.Backend.PushBackoff,
	})
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		log.Printf("warning: backend config not loaded, serving defaults: %v", err)
	}

	srv := newServer(session)
	if *probeEvery > 0 {
		srv.monitor = newFeedMonitor(session.Feed(), *probeEvery)
		srv.monitor.start(ctx)
	}

	log.Printf("starting against %s", session.BaseURL())
	if err := srv.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("server error: %v", err)
	}
}
