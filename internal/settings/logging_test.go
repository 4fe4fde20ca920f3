package settings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarning},
		{"WARNING", LevelWarning},
		{"error", LevelError},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFilterWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &levelFilterWriter{minLevel: LevelWarning, next: &buf}

	w.Write([]byte("store: loaded backend config rev 1\n"))
	w.Write([]byte("store: warning: push rev 2 failed\n"))
	w.Write([]byte("web: error: template broke\n"))

	out := buf.String()
	if strings.Contains(out, "loaded backend config") {
		t.Error("info line should be filtered")
	}
	if !strings.Contains(out, "push rev 2 failed") || !strings.Contains(out, "template broke") {
		t.Errorf("warning/error lines missing: %q", out)
	}
}

func TestRotatingFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "visiondeck.log")
	rw, err := NewRotatingFileWriter(path, 20, 2)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer rw.Close()

	for _, line := range []string{"aaaaaaaaaaaaaaa\n", "bbbbbbbbbbbbbbb\n", "ccccccccccccccc\n", "ddddddddddddddd\n"} {
		if _, err := rw.Write([]byte(line)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	cur, _ := os.ReadFile(path)
	if string(cur) != "ddddddddddddddd\n" {
		t.Errorf("current file = %q", cur)
	}
	b1, _ := os.ReadFile(path + ".1")
	if string(b1) != "ccccccccccccccc\n" {
		t.Errorf(".1 = %q", b1)
	}
	b2, _ := os.ReadFile(path + ".2")
	if string(b2) != "bbbbbbbbbbbbbbb\n" {
		t.Errorf(".2 = %q", b2)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only backupCount backups should be kept")
	}
}

func TestConfigureLogging(t *testing.T) {
	origOut, origFlags, origPrefix := log.Writer(), log.Flags(), log.Prefix()
	defer func() {
		log.SetOutput(origOut)
		log.SetFlags(origFlags)
		log.SetPrefix(origPrefix)
	}()

	cfg := DefaultConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "out.log")
	cfg.Log.Level = "WARNING"

	cleanup, err := ConfigureLogging(cfg, "visiondeck")
	if err != nil {
		t.Fatalf("ConfigureLogging: %v", err)
	}
	log.Printf("store: applied rev 1")
	log.Printf("store: warning: push rev 1 failed")
	cleanup()

	data, err := os.ReadFile(cfg.Log.File)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "applied rev 1") {
		t.Error("info line should be filtered at WARNING")
	}
	if !strings.Contains(out, "visiondeck: store: warning: push rev 1 failed") {
		t.Errorf("expected prefixed warning line, got %q", out)
	}
}
