package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/settings"
)

func main() {
	configPath := flag.String("config", settings.DefaultPath, "path to settings file (YAML or TOML)")
	addr := flag.String("addr", "", "listen address (overrides web.addr)")
	backend := flag.String("backend", "", "backend base URL (overrides backend.base_url)")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "visiondeck-web: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if *backend != "" {
		cfg.Backend.BaseURL = *backend
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "visiondeck-web: %v\n", err)
			os.Exit(1)
		}
	}

	cleanup, err := settings.ConfigureLogging(cfg, "visiondeck-web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "visiondeck-web: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	session := visiondeck.NewSession(visiondeck.SessionConfig{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		PushAttempts:   cfg.Backend.PushAttempts,
		PushBackoff:    cfg.Backend.PushBackoff,
	})
	defer session.Close()

	// The page renders defaults until the backend answers.
	go session.Start(context.Background())

	mux := newRouter(session)

	srv := &http.Server{
		Addr:        cfg.Web.Addr,
		Handler:     logging(recovery(mux)),
		ReadTimeout: 15 * time.Second,
		// The feed handler clears this for its own unbounded response.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("listening on %s, backend %s", cfg.Web.Addr, session.BaseURL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("error: %v", err)
		}
	}()

	<-done
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Open feed streams never go idle, so Shutdown gives up on them at the
	// deadline and Close drops whatever is left.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("warning: shutdown: %v", err)
		srv.Close()
	}
	log.Println("stopped")
}
