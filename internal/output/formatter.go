package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"github.com/matthewjhunter/visiondeck/internal/store"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// ApplyResult is what a CLI change reports: the value now held locally and
// how the write-through went.
type ApplyResult struct {
	Config  enhance.Config `json:"config"`
	Changed []string       `json:"changed"`
	Stats   store.Stats    `json:"sync"`
}

// ProbeResult describes a live feed reachability check.
type ProbeResult struct {
	URL         string `json:"url"`
	Available   bool   `json:"available"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OutputConfig prints a configuration.
func (f *Formatter) OutputConfig(cfg enhance.Config) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(cfg)
	case FormatText:
		fmt.Fprintf(f.out, "clahe=%t\n", cfg.Clahe)
		fmt.Fprintf(f.out, "unsharp_amount=%.1f\n", cfg.UnsharpAmount)
		fmt.Fprintf(f.out, "denoise=%t\n", cfg.Denoise)
		fmt.Fprintf(f.out, "source=%s\n", cfg.Source)
		return nil
	case FormatHuman:
		kind := "file"
		if cfg.IsDeviceIndex() {
			kind = "device"
		}
		fmt.Fprintf(f.out, "CLAHE contrast   %s\n", onOff(cfg.Clahe))
		fmt.Fprintf(f.out, "Sharpen amount   %.1f\n", cfg.UnsharpAmount)
		fmt.Fprintf(f.out, "Denoise (slow)   %s\n", onOff(cfg.Denoise))
		fmt.Fprintf(f.out, "Video source     %s (%s)\n", cfg.Source, kind)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", f.format)
	}
}

// OutputApplyResult prints the outcome of a local change.
func (f *Formatter) OutputApplyResult(result *ApplyResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		if err := f.OutputConfig(result.Config); err != nil {
			return err
		}
		fmt.Fprintf(f.out, "pushes_succeeded=%d\n", result.Stats.PushesSucceeded)
		fmt.Fprintf(f.out, "pushes_failed=%d\n", result.Stats.PushesFailed)
		return nil
	case FormatHuman:
		if err := f.OutputConfig(result.Config); err != nil {
			return err
		}
		switch {
		case result.Stats.PushesFailed > 0:
			fmt.Fprintf(f.out, "\nApplied locally; the backend did not accept the change.\n")
		case result.Stats.PushesSucceeded > 0:
			fmt.Fprintf(f.out, "\nApplied and sent to the backend.\n")
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", f.format)
	}
}

// OutputProbeResult prints a feed reachability check.
func (f *Formatter) OutputProbeResult(result *ProbeResult) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(result)
	case FormatText:
		fmt.Fprintf(f.out, "url=%s\n", result.URL)
		fmt.Fprintf(f.out, "available=%t\n", result.Available)
		if result.ContentType != "" {
			fmt.Fprintf(f.out, "content_type=%s\n", result.ContentType)
		}
		if result.Error != "" {
			fmt.Fprintf(f.out, "error=%s\n", result.Error)
		}
		return nil
	case FormatHuman:
		if result.Available {
			fmt.Fprintf(f.out, "Live feed at %s is streaming (%s)\n", result.URL, result.ContentType)
		} else {
			fmt.Fprintf(f.out, "Live feed at %s is unavailable: %s\n", result.URL, result.Error)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", f.format)
	}
}

// Error prints an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Error: "+format+"\n", args...)
}

// Warning prints a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
