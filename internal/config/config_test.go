package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DestFormat != ".mp4" {
		t.Errorf("DestFormat = %q, want .mp4", cfg.DestFormat)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if !cfg.PreserveStructure {
		t.Error("PreserveStructure should default to true")
	}
	if cfg.WatchEnabled {
		t.Error("WatchEnabled should default to false")
	}
	if cfg.DrainInterval != 250*time.Millisecond {
		t.Errorf("DrainInterval = %v, want 250ms", cfg.DrainInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/media/in")
	t.Setenv("SOURCE_FORMATS", " .MKV, .flv ,")
	t.Setenv("DEST_FORMAT", ".webm")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("PRESERVE_STRUCTURE", "false")
	t.Setenv("WATCH_SETTLE_DELAY", "10s")

	cfg := Load()

	if cfg.SourceDir != "/media/in" {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
	if len(cfg.SourceFormats) != 2 || cfg.SourceFormats[0] != ".MKV" || cfg.SourceFormats[1] != ".flv" {
		t.Errorf("SourceFormats = %v", cfg.SourceFormats)
	}
	if cfg.DestFormat != ".webm" {
		t.Errorf("DestFormat = %q", cfg.DestFormat)
	}
	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.PreserveStructure {
		t.Error("PreserveStructure should be false")
	}
	if cfg.WatchSettle != 10*time.Second {
		t.Errorf("WatchSettle = %v", cfg.WatchSettle)
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("PRESERVE_STRUCTURE", "maybe")

	cfg := Load()
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default on parse failure", cfg.HTTPPort)
	}
	if !cfg.PreserveStructure {
		t.Error("PreserveStructure should fall back to default on parse failure")
	}
}
