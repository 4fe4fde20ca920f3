package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"github.com/matthewjhunter/visiondeck/internal/preset"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <preset-file>",
		Short: "Apply a YAML or TOML preset now and again every time it is saved",
		Long: `Loads the backend's configuration, applies the preset over it, then keeps
watching the preset file and re-applies it on every save.
Handles SIGINT/SIGTERM for graceful shutdown (in-flight pushes are abandoned).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, err := preset.Load(path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := newSession()
			defer session.Close()

			if err := session.Start(ctx); err != nil {
				log.Printf("watch: warning: backend config not loaded, starting from defaults: %v", err)
			}

			apply := func(p enhance.Partial) {
				cfg := session.Apply(p)
				log.Printf("watch: applied %v from %s: %v", p.Fields(), path, cfg)
			}
			if !p.Empty() {
				apply(p)
			}

			log.Printf("watch: watching %s against %s", path, session.BaseURL())
			err = preset.Watch(ctx, path, apply)
			log.Println("watch: received shutdown signal, exiting")
			return err
		},
	}
}
