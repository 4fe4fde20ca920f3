package main

import (
	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/store"
)

// Input types for MCP tools. The SDK infers JSON Schema from these structs.
// Pointer types are optional; value types are required.

type emptyInput struct{}

type setSourceInput struct {
	Source string `json:"source" jsonschema:"Video source: a camera device index such as 0, or a path to a video file on the backend host"`
}

type setSharpenInput struct {
	Amount float64 `json:"amount" jsonschema:"Unsharp mask amount from 0 to 3. Snapped to steps of 0.1."`
}

// Output types. Every tool reports the configuration it left in place and
// how the write-through to the backend went.

type configOutput struct {
	Config visiondeck.EnhancementConfig `json:"config"`
	Sync   store.Stats                  `json:"sync"`
	// Pushed is false when the backend did not accept the change; the local
	// value is kept either way.
	Pushed *bool `json:"pushed,omitempty"`
}

type feedStatusOutput struct {
	URL         string `json:"url"`
	Available   bool   `json:"available"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
	CheckedAt   string `json:"checked_at,omitempty"`
}
