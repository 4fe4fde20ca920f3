// Package preset loads partial enhancement settings from YAML or TOML files
// and re-applies them whenever the file is saved.
package preset

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/matthewjhunter/visiondeck/internal/enhance"
	"gopkg.in/yaml.v3"
)

// settle is how long Watch waits after the last event before reloading, so a
// burst of writes from one save produces a single reload.
const settle = 100 * time.Millisecond

// Load parses the preset at path. Fields the file does not mention stay nil.
func Load(path string) (enhance.Partial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return enhance.Partial{}, fmt.Errorf("failed to read preset: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes preset data, using the extension of name to pick the format.
func Parse(name string, data []byte) (enhance.Partial, error) {
	var p enhance.Partial
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		if _, err := toml.Decode(string(data), &p); err != nil {
			return enhance.Partial{}, fmt.Errorf("failed to parse preset %s: %w", name, err)
		}
	} else if err := yaml.Unmarshal(data, &p); err != nil {
		return enhance.Partial{}, fmt.Errorf("failed to parse preset %s: %w", name, err)
	}
	if p.UnsharpAmount != nil {
		if err := (enhance.Config{UnsharpAmount: *p.UnsharpAmount}).Validate(); err != nil {
			return enhance.Partial{}, fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return p, nil
}

// Watch calls fn with the preset at path every time the file is written or
// replaced, until ctx ends. The containing directory is watched so editors
// that save by rename are seen too. Files that fail to parse are logged and
// skipped.
func Watch(ctx context.Context, path string, fn func(enhance.Partial)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve preset path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	log.Printf("preset: watching %s", abs)

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(settle)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Printf("preset: warning: watcher error: %v", err)

		case <-timer.C:
			p, err := Load(abs)
			if err != nil {
				log.Printf("preset: warning: %v", err)
				continue
			}
			if p.Empty() {
				log.Printf("preset: %s names no fields, skipped", abs)
				continue
			}
			fn(p)
		}
	}
}
