package main

import (
	"encoding/json"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matthewjhunter/visiondeck"
	"github.com/matthewjhunter/visiondeck/internal/feed"
	"github.com/matthewjhunter/visiondeck/internal/panel"
)

// handlers holds dependencies for all HTTP handler methods.
type handlers struct {
	session *visiondeck.Session

	once sync.Once
	tmpl *template.Template
}

// init parses the embedded templates on first use.
func (h *handlers) init() {
	h.once.Do(func() {
		tmplFS, _ := fs.Sub(embedded, "templates")
		h.tmpl = template.Must(template.New("").ParseFS(tmplFS, "*.html"))
	})
}

// --- Template data types ---

type pageData struct {
	Title       string
	Panel       panel.View
	FeedURL     string
	Placeholder string
}

type errorData struct {
	Message string
	Detail  string
}

type statusData struct {
	Backend string                       `json:"backend"`
	Config  visiondeck.EnhancementConfig `json:"config"`
	Sync    visiondeck.SyncStats         `json:"sync"`
}

// --- Helper methods ---

func (h *handlers) renderPage(w http.ResponseWriter, r *http.Request, data pageData) {
	h.init()

	// htmx and app.js requests only need the panel.
	if r.Header.Get("HX-Request") == "true" {
		h.renderFragment(w, "panel", data.Panel)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("error: template: %v", err)
	}
}

func (h *handlers) renderFragment(w http.ResponseWriter, name string, data any) {
	h.init()
	tmpl := h.tmpl.Lookup(name)
	if tmpl == nil {
		log.Printf("error: unknown fragment template: %s", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("error: template: %v", err)
	}
}

func (h *handlers) renderError(w http.ResponseWriter, status int, msg, detail string) {
	h.init()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if tmpl := h.tmpl.Lookup("error"); tmpl != nil {
		tmpl.Execute(w, errorData{Message: msg, Detail: detail})
	}
}

func (h *handlers) renderPanel(w http.ResponseWriter) {
	h.renderFragment(w, "panel", h.session.Panel().View())
}

// --- Full-page handlers ---

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageData{
		Title:       "Video Enhancement",
		Panel:       h.session.Panel().View(),
		FeedURL:     "/video_feed",
		Placeholder: feed.Placeholder,
	})
}

// --- Panel fragment handlers ---

func (h *handlers) handlePanel(w http.ResponseWriter, r *http.Request) {
	h.renderPanel(w)
}

func (h *handlers) handleSetSource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid form data", err.Error())
		return
	}
	if _, ok := r.PostForm["source"]; !ok {
		h.renderError(w, http.StatusBadRequest, "Missing source", "")
		return
	}
	// Applied verbatim; the backend decides what a source means.
	h.session.Panel().SetSource(r.PostFormValue("source"))
	h.renderPanel(w)
}

func (h *handlers) handleToggleClahe(w http.ResponseWriter, r *http.Request) {
	h.session.Panel().ToggleClahe()
	h.renderPanel(w)
}

func (h *handlers) handleToggleDenoise(w http.ResponseWriter, r *http.Request) {
	h.session.Panel().ToggleDenoise()
	h.renderPanel(w)
}

func (h *handlers) handleSetSharpen(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid form data", err.Error())
		return
	}
	raw := strings.TrimSpace(r.PostFormValue("unsharp_amount"))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid sharpen amount", raw)
		return
	}
	h.session.Panel().SetSharpen(v)
	h.renderPanel(w)
}

// --- Feed and status ---

func (h *handlers) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	// A stream outlives the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("warning: clear write deadline: %v", err)
	}
	h.session.Feed().ServeHTTP(w, r)
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(statusData{
		Backend: h.session.BaseURL(),
		Config:  h.session.Config(),
		Sync:    h.session.Stats(),
	})
}
