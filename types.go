package visiondeck

import (
	"net/http"
	"time"

	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"github.com/matthewjhunter/visiondeck/internal/store"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	BaseURL        string        // backend origin, e.g. http://localhost:8000
	RequestTimeout time.Duration // per-request bound for /config calls; 0 disables
	PushAttempts   int           // tries per push; values below 1 mean 1
	PushBackoff    time.Duration
	HTTPClient     *http.Client // optional; must not set Timeout if the feed is relayed
}

// EnhancementConfig is the backend's video-processing configuration.
type EnhancementConfig = enhance.Config

// Update names the fields of an EnhancementConfig to change. Nil fields keep
// their current value.
type Update = enhance.Partial

// SyncStats reports how the session's write-through has gone so far.
type SyncStats = store.Stats

// DefaultBaseURL is used when SessionConfig.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000"
