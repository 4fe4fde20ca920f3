package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"github.com/matthewjhunter/visiondeck/internal/output"
	"github.com/matthewjhunter/visiondeck/internal/panel"
	"github.com/spf13/cobra"
)

const probeTimeout = 10 * time.Second

// applyAndReport loads the backend's config, lets change modify it, waits for
// the write-through, and prints the result. A failed initial load is only a
// warning: the change is still applied over the defaults.
func applyAndReport(ctx context.Context, change func(*visiondeck.Session) []string) error {
	formatter := output.NewFormatter(output.Format(outputFormat))

	session := newSession()
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		formatter.Warning("backend config not loaded, starting from defaults: %v", err)
	}

	changed := change(session)
	session.Wait()

	return formatter.OutputApplyResult(&output.ApplyResult{
		Config:  session.Config(),
		Changed: changed,
		Stats:   session.Stats(),
	})
}

// setFlags holds the raw values of the set command's flags.
type setFlags struct {
	clahe   bool
	denoise bool
	unsharp float64
	source  string
}

// buildUpdate turns the flags the user actually passed into an update.
// Sharpen values are snapped onto the panel slider.
func buildUpdate(cmd *cobra.Command, f setFlags) (enhance.Partial, error) {
	var u enhance.Partial
	if cmd.Flags().Changed("clahe") {
		u.Clahe = &f.clahe
	}
	if cmd.Flags().Changed("denoise") {
		u.Denoise = &f.denoise
	}
	if cmd.Flags().Changed("unsharp") {
		amount := panel.SharpenSlider.Snap(f.unsharp)
		u.UnsharpAmount = &amount
	}
	if cmd.Flags().Changed("source") {
		u.Source = &f.source
	}
	if u.Empty() {
		return u, fmt.Errorf("nothing to set: pass at least one of --clahe, --denoise, --unsharp, --source")
	}
	return u, nil
}

func setCmd() *cobra.Command {
	var f setFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more enhancement settings",
		Example: `  visiondeck set --clahe
  visiondeck set --unsharp 1.5 --denoise=false
  visiondeck set --source /clips/night.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildUpdate(cmd, f)
			if err != nil {
				return err
			}
			return applyAndReport(cmd.Context(), func(s *visiondeck.Session) []string {
				s.Apply(u)
				return u.Fields()
			})
		},
	}
	cmd.Flags().BoolVar(&f.clahe, "clahe", false, "enable CLAHE contrast")
	cmd.Flags().BoolVar(&f.denoise, "denoise", false, "enable denoising (slow)")
	cmd.Flags().Float64Var(&f.unsharp, "unsharp", 0, "sharpen amount (0 to 3, step 0.1)")
	cmd.Flags().StringVar(&f.source, "source", "", "video source: a device index such as 0, or a file path")
	return cmd
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "toggle <clahe|denoise>",
		Short:     "Flip a boolean enhancement",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"clahe", "denoise"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyAndReport(cmd.Context(), func(s *visiondeck.Session) []string {
				switch args[0] {
				case "clahe":
					s.Panel().ToggleClahe()
				default:
					s.Panel().ToggleDenoise()
				}
				return []string{args[0]}
			})
		},
	}
}
