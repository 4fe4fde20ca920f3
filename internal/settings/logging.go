package settings

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RotatingFileWriter is an io.Writer that rolls the file over to .1, .2, ...
// once it would grow past maxBytes.
type RotatingFileWriter struct {
	mu          sync.Mutex
	path        string
	maxBytes    int
	backupCount int
	file        *os.File
	currentSize int64
}

// LogLevel is a coarse filter applied on top of the standard log package.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// detectMessageLevel infers a level from the tags callers put in messages
// ("warning:", "error:", "debug:"). Untagged lines are INFO.
func detectMessageLevel(msg string) LogLevel {
	upper := strings.ToUpper(msg)
	switch {
	case strings.Contains(upper, "ERROR:"):
		return LevelError
	case strings.Contains(upper, "WARNING:"):
		return LevelWarning
	case strings.Contains(upper, "DEBUG:"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

type levelFilterWriter struct {
	minLevel LogLevel
	next     io.Writer
}

func (w *levelFilterWriter) Write(p []byte) (int, error) {
	if detectMessageLevel(string(p)) < w.minLevel {
		return len(p), nil
	}
	return w.next.Write(p)
}

// NewRotatingFileWriter opens (or creates) path for appending.
// maxBytes <= 0 disables rotation.
func NewRotatingFileWriter(path string, maxBytes, backupCount int) (*RotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("settings: create log dir: %w", err)
		}
	}

	rw := &RotatingFileWriter{
		path:        path,
		maxBytes:    maxBytes,
		backupCount: backupCount,
	}
	if err := rw.openFile(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingFileWriter) openFile() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("settings: open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	rw.file = f
	rw.currentSize = info.Size()
	return nil
}

func (rw *RotatingFileWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.maxBytes > 0 && rw.currentSize > 0 && rw.currentSize+int64(len(p)) > int64(rw.maxBytes) {
		rw.rotate()
	}
	if rw.file == nil {
		return 0, fmt.Errorf("settings: log file %s is not open", rw.path)
	}

	n, err := rw.file.Write(p)
	rw.currentSize += int64(n)
	return n, err
}

func (rw *RotatingFileWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

// rotate shifts file -> file.1 -> file.2 ... dropping the oldest backup.
func (rw *RotatingFileWriter) rotate() {
	rw.file.Close()
	rw.file = nil

	if rw.backupCount > 0 {
		for i := rw.backupCount; i > 0; i-- {
			src := rw.path
			if i > 1 {
				src = fmt.Sprintf("%s.%d", rw.path, i-1)
			}
			dst := fmt.Sprintf("%s.%d", rw.path, i)
			os.Remove(dst)
			os.Rename(src, dst)
		}
	} else {
		os.Remove(rw.path)
	}

	if err := rw.openFile(); err != nil {
		fmt.Fprintf(os.Stderr, "settings: failed to reopen log file after rotation: %v\n", err)
	}
}

// ConfigureLogging points the standard logger at the configured sinks:
// the rotating file and/or stdout, falling back to stderr when neither is
// set. The returned cleanup closes any file it opened.
func ConfigureLogging(cfg *Config, prefix string) (cleanup func(), err error) {
	var writers []io.Writer
	var closers []io.Closer

	if cfg.Log.File != "" {
		rw, err := NewRotatingFileWriter(cfg.Log.File, cfg.Log.MaxBytes, cfg.Log.BackupCount)
		if err != nil {
			return func() {}, err
		}
		writers = append(writers, rw)
		closers = append(closers, rw)
	}
	if cfg.Log.Stdout {
		writers = append(writers, os.Stdout)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}

	log.SetOutput(&levelFilterWriter{minLevel: parseLogLevel(cfg.Log.Level), next: w})
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	if prefix != "" {
		log.SetPrefix(prefix + ": ")
	}

	return func() {
		for _, c := range closers {
			c.Close()
		}
	}, nil
}
