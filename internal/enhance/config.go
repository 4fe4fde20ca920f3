package enhance

import (
	"fmt"
	"math"
)

// Default field values used before the backend has answered.
const (
	DefaultSource        = "0"
	DefaultUnsharpAmount = 0.0
)

// Config is the enhancement configuration shared with the backend.
// Values are replaced, never mutated in place.
type Config struct {
	Clahe         bool    `json:"clahe" yaml:"clahe" toml:"clahe"`
	UnsharpAmount float64 `json:"unsharp_amount" yaml:"unsharp_amount" toml:"unsharp_amount"`
	Denoise       bool    `json:"denoise" yaml:"denoise" toml:"denoise"`
	Source        string  `json:"source" yaml:"source" toml:"source"`
}

// Default returns the client-side configuration used until the initial load succeeds.
func Default() Config {
	return Config{
		Clahe:         false,
		UnsharpAmount: DefaultUnsharpAmount,
		Denoise:       false,
		Source:        DefaultSource,
	}
}

// Validate reports values that cannot be sent to the backend. Range checks
// are the backend's business; only non-finite amounts are rejected here.
func (c Config) Validate() error {
	if math.IsNaN(c.UnsharpAmount) || math.IsInf(c.UnsharpAmount, 0) {
		return fmt.Errorf("unsharp_amount must be finite, got %v", c.UnsharpAmount)
	}
	return nil
}

// IsDeviceIndex reports whether Source names a capture device (all digits)
// rather than a file path.
func (c Config) IsDeviceIndex() bool {
	if c.Source == "" {
		return false
	}
	for _, r := range c.Source {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c Config) String() string {
	return fmt.Sprintf("{clahe:%t unsharp_amount:%.1f denoise:%t source:%q}",
		c.Clahe, c.UnsharpAmount, c.Denoise, c.Source)
}

// Partial is a field-wise override. Nil fields are left untouched by Merge.
type Partial struct {
	Clahe         *bool    `json:"clahe,omitempty" yaml:"clahe,omitempty" toml:"clahe,omitempty"`
	UnsharpAmount *float64 `json:"unsharp_amount,omitempty" yaml:"unsharp_amount,omitempty" toml:"unsharp_amount,omitempty"`
	Denoise       *bool    `json:"denoise,omitempty" yaml:"denoise,omitempty" toml:"denoise,omitempty"`
	Source        *string  `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
}

// Empty reports whether the partial names no fields.
func (p Partial) Empty() bool {
	return p.Clahe == nil && p.UnsharpAmount == nil && p.Denoise == nil && p.Source == nil
}

// Fields lists the JSON names of the fields the partial sets, in declaration order.
func (p Partial) Fields() []string {
	var names []string
	if p.Clahe != nil {
		names = append(names, "clahe")
	}
	if p.UnsharpAmount != nil {
		names = append(names, "unsharp_amount")
	}
	if p.Denoise != nil {
		names = append(names, "denoise")
	}
	if p.Source != nil {
		names = append(names, "source")
	}
	return names
}

// Merge returns a new Config equal to current with every field named in p
// overridden by p's value.
func Merge(current Config, p Partial) Config {
	next := current
	if p.Clahe != nil {
		next.Clahe = *p.Clahe
	}
	if p.UnsharpAmount != nil {
		next.UnsharpAmount = *p.UnsharpAmount
	}
	if p.Denoise != nil {
		next.Denoise = *p.Denoise
	}
	if p.Source != nil {
		next.Source = *p.Source
	}
	return next
}

// Convenience constructors for single-field partials.

func WithClahe(v bool) Partial            { return Partial{Clahe: &v} }
func WithUnsharpAmount(v float64) Partial { return Partial{UnsharpAmount: &v} }
func WithDenoise(v bool) Partial          { return Partial{Denoise: &v} }
func WithSource(v string) Partial         { return Partial{Source: &v} }
