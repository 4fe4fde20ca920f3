package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/output"
	"github.com/matthewjhunter/visiondeck/internal/settings"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	backendURL   string
	cfg          *settings.Config
	outputFormat string
	logCleanup   = func() {}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "visiondeck",
		Short: "Operator console for a live video enhancement backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			cleanup, err := settings.ConfigureLogging(cfg, "visiondeck")
			if err != nil {
				return fmt.Errorf("failed to configure logging: %w", err)
			}
			logCleanup = cleanup
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: "+settings.DefaultPath+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "human", "output format: json, text, human")
	rootCmd.PersistentFlags().StringVarP(&backendURL, "backend", "b", "", "backend base URL (overrides the config file)")

	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(initConfigCmd())

	err := rootCmd.Execute()
	logCleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	if configPath == "" {
		configPath = settings.DefaultPath
	}

	loaded, err := settings.Load(configPath)
	if err != nil {
		return err
	}
	if backendURL != "" {
		loaded.Backend.BaseURL = backendURL
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded
	return nil
}

func newSession() *visiondeck.Session {
	return visiondeck.NewSession(visiondeck.SessionConfig{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		PushAttempts:   cfg.Backend.PushAttempts,
		PushBackoff:    cfg.Backend.PushBackoff,
	})
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the backend's current enhancement configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			session := newSession()
			defer session.Close()

			if err := session.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load config from %s: %w", session.BaseURL(), err)
			}
			return formatter.OutputConfig(session.Config())
		},
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the backend's live feed is streaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			session := newSession()
			defer session.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			defer cancel()

			result := &output.ProbeResult{URL: session.Feed().URL()}
			contentType, err := session.Feed().Probe(ctx)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Available = true
				result.ContentType = contentType
			}
			return formatter.OutputProbeResult(result)
		},
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		// Skip loading a config that may not exist yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = settings.DefaultPath
			}
			if err := settings.Write(configPath, settings.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}
