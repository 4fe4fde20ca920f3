package main

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/matthewjhunter/visiondeck"
)

//go:embed templates static
var embedded embed.FS

// newRouter sets up all routes using Go 1.22+ enhanced routing.
func newRouter(session *visiondeck.Session) http.Handler {
	mux := http.NewServeMux()

	// Static files
	staticFS, _ := fs.Sub(embedded, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	h := &handlers{session: session}

	// Full page
	mux.HandleFunc("GET /{$}", h.handleIndex)

	// Panel fragment and its actions; every action answers with the
	// re-rendered panel.
	mux.HandleFunc("GET /panel", h.handlePanel)
	mux.HandleFunc("POST /panel/source", h.handleSetSource)
	mux.HandleFunc("POST /panel/clahe", h.handleToggleClahe)
	mux.HandleFunc("POST /panel/denoise", h.handleToggleDenoise)
	mux.HandleFunc("POST /panel/sharpen", h.handleSetSharpen)

	// Live feed passthrough
	mux.HandleFunc("GET /video_feed", h.handleVideoFeed)

	mux.HandleFunc("GET /status", h.handleStatus)

	return mux
}
