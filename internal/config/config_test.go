package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Quality.Threshold() != 0.35 {
		t.Fatalf("expected 0.35, got %v", c.Quality.Threshold())
	}
	if c.Quality.ChunkSize != 2048 {
		t.Fatalf("expected chunk size 2048")
	}
	if c.Recognition.BaselineScore != 70 {
		t.Fatalf("expected baseline 70")
	}
	if c.Throttle.JinglePerMinute != 5 || c.Throttle.JinglePerDay != 5 {
		t.Fatalf("unexpected throttle defaults %+v", c.Throttle)
	}
	if c.Generation.Provider != "mock" {
		t.Fatalf("expected mock provider")
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	data := "quality:\n  min_originality: 0.5\nrecognition:\n  timeout: 12s\nserver:\n  port: 8080\nledger:\n  path: " + filepath.Join(tmp, "db.json") + "\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Quality.Threshold() != 0.5 {
		t.Fatalf("unexpected min originality %v", cfg.Quality.Threshold())
	}
	if cfg.Recognition.Timeout != 12*time.Second {
		t.Fatalf("unexpected recognition timeout %v", cfg.Recognition.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
}

func TestZeroMinOriginalityIsKept(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	data := "quality:\n  min_originality: 0\nledger:\n  path: " + filepath.Join(tmp, "db.json") + "\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Quality.MinOriginality == nil || cfg.Quality.Threshold() != 0 {
		t.Fatalf("explicit zero threshold replaced: %v", cfg.Quality.Threshold())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	t.Setenv("MUSIGENT_QUALITY_MIN_ORIGINALITY", "0")
	cfg, err = Load(filepath.Join(tmp, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Quality.Threshold() != 0 {
		t.Fatalf("explicit zero env threshold replaced: %v", cfg.Quality.Threshold())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MUSIGENT_RECOGNITION_API_TOKEN", "tok")
	t.Setenv("MUSIGENT_THROTTLE_JINGLE_PER_DAY", "9")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Recognition.APIToken != "tok" {
		t.Fatalf("expected token override")
	}
	if cfg.Throttle.JinglePerDay != 9 {
		t.Fatalf("expected per-day override, got %d", cfg.Throttle.JinglePerDay)
	}
}

func TestValidate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	c.Ledger.Path = filepath.Join(t.TempDir(), "memory_db.json")
	if err := c.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	tooHigh := 1.5
	c.Quality.MinOriginality = &tooHigh
	if err := c.Validate(); err == nil {
		t.Fatalf("expected min_originality validation error")
	}
	c.Quality.MinOriginality = nil
	c.Generation.Provider = "http"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected base_url validation error")
	}
}
