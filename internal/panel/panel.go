package panel

import (
	"fmt"
	"math"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
)

// SourcePlaceholder is the hint shown in an empty source field.
const SourcePlaceholder = "0 or /path/to/video.mp4"

// Store is the part of the config store the panel needs.
type Store interface {
	Current() enhance.Config
	Apply(p enhance.Partial) enhance.Config
}

// Slider models the sharpen range input: the widget itself keeps values
// inside [Min, Max] on a Step grid.
type Slider struct {
	Min  float64
	Max  float64
	Step float64
}

// SharpenSlider is the unsharp-amount control.
var SharpenSlider = Slider{Min: 0.0, Max: 3.0, Step: 0.1}

// Snap returns v as the widget would report it: clamped to the range and
// rounded to the nearest step. NaN snaps to Min.
func (s Slider) Snap(v float64) float64 {
	if math.IsNaN(v) || v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	steps := math.Round((v - s.Min) / s.Step)
	snapped := s.Min + steps*s.Step
	// Trim float noise so 0.1*3 reads as 0.3.
	snapped = math.Round(snapped*1e6) / 1e6
	return math.Min(snapped, s.Max)
}

// View is everything needed to render the panel.
type View struct {
	Config            enhance.Config
	SharpenLabel      string
	SharpenMin        float64
	SharpenMax        float64
	SharpenStep       float64
	SourcePlaceholder string
	SourceIsDevice    bool
}

// Panel turns operator actions into store updates. Each action produces
// exactly one Apply naming only the field that changed.
type Panel struct {
	store Store
}

// New creates a panel over store.
func New(store Store) *Panel {
	return &Panel{store: store}
}

// SetSource applies a source field change. Every change event is applied
// as it arrives.
func (p *Panel) SetSource(source string) enhance.Config {
	return p.store.Apply(enhance.WithSource(source))
}

// ToggleClahe flips the CLAHE switch.
func (p *Panel) ToggleClahe() enhance.Config {
	return p.store.Apply(enhance.WithClahe(!p.store.Current().Clahe))
}

// ToggleDenoise flips the denoise switch.
func (p *Panel) ToggleDenoise() enhance.Config {
	return p.store.Apply(enhance.WithDenoise(!p.store.Current().Denoise))
}

// SetSharpen applies a slider position.
func (p *Panel) SetSharpen(v float64) enhance.Config {
	return p.store.Apply(enhance.WithUnsharpAmount(SharpenSlider.Snap(v)))
}

// View returns the render model for the current configuration.
func (p *Panel) View() View {
	cfg := p.store.Current()
	return View{
		Config:            cfg,
		SharpenLabel:      fmt.Sprintf("%.1f", cfg.UnsharpAmount),
		SharpenMin:        SharpenSlider.Min,
		SharpenMax:        SharpenSlider.Max,
		SharpenStep:       SharpenSlider.Step,
		SourcePlaceholder: SourcePlaceholder,
		SourceIsDevice:    cfg.IsDeviceIndex(),
	}
}
